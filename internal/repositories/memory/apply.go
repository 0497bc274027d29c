// Package memory holds in-process repositories used by tests and by the
// single-node memory backend.
package memory

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// applyFields returns a copy of src with fields $set on it, using the same
// bson field names as the MongoDB repositories.
func applyFields[T any](src *T, fields map[string]interface{}) (*T, error) {
	raw, err := bson.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	if raw, err = bson.Marshal(doc); err != nil {
		return nil, fmt.Errorf("failed to encode update: %w", err)
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to apply update: %w", err)
	}
	return &out, nil
}

func clone[T any](src *T) *T {
	out, err := applyFields(src, nil)
	if err != nil {
		panic(err)
	}
	return out
}
