package entity

import (
	"time"

	"github.com/google/uuid"
)

// CohortVector is one historical authorization outcome embedded as a feature
// vector, queried by nearest-neighbour distance during cohort analysis.
type CohortVector struct {
	Id           uuid.UUID
	CaseId       *uuid.UUID
	PayerId      string
	Outcome      string
	DecisionDays int
	Embedding    []float32
	CreatedAt    time.Time
}

// CohortNeighbour is a lookup hit with its distance to the probe vector.
type CohortNeighbour struct {
	Vector   *CohortVector
	Distance float64
}
