package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ageMarker = regexp.MustCompile(`\[Age: (\d+)\]\s*`)

type MedicalProfile struct {
	ID                   string    `json:"id" bson:"_id"`
	UserID               string    `json:"user_id" bson:"user_id"`
	IdentityValue        string    `json:"identity_value,omitempty" bson:"identity_value,omitempty"`
	Age                  int       `json:"age,omitempty" bson:"age,omitempty" validate:"omitempty,min=0,max=130"`
	BloodGroup           string    `json:"blood_group,omitempty" bson:"blood_group,omitempty"`
	HeightCM             float64   `json:"height_cm,omitempty" bson:"height_cm,omitempty"`
	WeightKG             float64   `json:"weight_kg,omitempty" bson:"weight_kg,omitempty"`
	Allergies            string    `json:"allergies,omitempty" bson:"allergies,omitempty"`
	PastOperations       string    `json:"past_operations,omitempty" bson:"past_operations,omitempty"`
	ChronicConditions    string    `json:"chronic_conditions,omitempty" bson:"chronic_conditions,omitempty"`
	ImportantMedicalInfo string    `json:"important_medical_info,omitempty" bson:"important_medical_info,omitempty"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at"`
}

// AllergyList splits the comma-joined allergies column.
func (m *MedicalProfile) AllergyList() []string {
	if strings.TrimSpace(m.Allergies) == "" {
		return nil
	}
	parts := strings.Split(m.Allergies, ",")
	allergies := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			allergies = append(allergies, p)
		}
	}
	return allergies
}

// ExtractAge prefers the age column and falls back to an "[Age: NN]"
// marker in the important info text.
func (m *MedicalProfile) ExtractAge() int {
	if m.Age > 0 {
		return m.Age
	}
	match := ageMarker.FindStringSubmatch(m.ImportantMedicalInfo)
	if len(match) < 2 {
		return 0
	}
	age, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return age
}

func (m *MedicalProfile) CleanImportantInfo() string {
	return strings.TrimSpace(ageMarker.ReplaceAllString(m.ImportantMedicalInfo, ""))
}

func (m *MedicalProfile) Summary() *MedicalSummary {
	return &MedicalSummary{
		ProfileID:         m.ID,
		Age:               m.ExtractAge(),
		BloodGroup:        m.BloodGroup,
		Allergies:         m.AllergyList(),
		ChronicConditions: m.ChronicConditions,
		ImportantInfo:     m.CleanImportantInfo(),
	}
}

// MedicalSummary is the part of the profile copied onto an emergency.
type MedicalSummary struct {
	ProfileID         string   `json:"profile_id,omitempty" bson:"profile_id,omitempty"`
	Age               int      `json:"age,omitempty" bson:"age,omitempty"`
	BloodGroup        string   `json:"blood_group,omitempty" bson:"blood_group,omitempty"`
	Allergies         []string `json:"allergies,omitempty" bson:"allergies,omitempty"`
	ChronicConditions string   `json:"chronic_conditions,omitempty" bson:"chronic_conditions,omitempty"`
	ImportantInfo     string   `json:"important_info,omitempty" bson:"important_info,omitempty"`
}
