package handlers

import (
	"encoding/json"
	"time"
)

// nullableID tells an absent field apart from an explicit null.
type nullableID struct {
	Set   bool
	Value uint
}

func (n *nullableID) UnmarshalJSON(data []byte) error {
	n.Set = true

	if string(data) == "null" {
		n.Value = 0
		return nil
	}

	return json.Unmarshal(data, &n.Value)
}

// nullableTime is nullableID for timestamps; a null leaves Value nil.
type nullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *nullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true

	if string(data) == "null" {
		n.Value = nil
		return nil
	}

	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t

	return nil
}
