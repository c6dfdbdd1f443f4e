package utils

import "github.com/google/uuid"

// UUIDGenerator produces unique identifiers for live connections.
// Version 7 is preferred because the ids sort by creation time in logs.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
