package models

import (
	"strings"
	"time"
)

// WeightUnit is the unit weights are entered in for a session.
type WeightUnit string

const (
	WeightUnitKg  WeightUnit = "kg"
	WeightUnitLbs WeightUnit = "lbs"
)

// Valid reports whether u is a known unit.
func (u WeightUnit) Valid() bool {
	return u == WeightUnitKg || u == WeightUnitLbs
}

// WorkoutSession is the single in-progress workout.
// Its JSON encoding is the persisted layout; StartTime encodes as RFC 3339.
type WorkoutSession struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	StartTime  time.Time  `json:"startTime"`
	Exercises  []Exercise `json:"exercises"`
	Note       string     `json:"note"`
	Photo      string     `json:"photo,omitempty"`
	WeightUnit WeightUnit `json:"weightUnit"`
}

// Exercise is one movement within a session.
type Exercise struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	BodyPart  string     `json:"bodyPart"`
	Equipment string     `json:"equipment"`
	RestTime  int        `json:"restTime"` // default rest seconds for new sets
	Sets      []SetEntry `json:"sets"`
}

// SetEntry is one recorded attempt of an exercise. Weight and reps are kept
// as the text the user typed.
type SetEntry struct {
	Weight    string       `json:"weight"`
	Reps      string       `json:"reps"`
	Rest      int          `json:"rest"`
	Completed bool         `json:"completed"`
	Previous  *PreviousSet `json:"previous,omitempty"`
}

// PreviousSet is the weight/reps snapshot from the last time the exercise was done.
type PreviousSet struct {
	Weight string `json:"weight"`
	Reps   string `json:"reps"`
}

// CanComplete reports whether the set has both weight and reps filled in.
func (s SetEntry) CanComplete() error {
	if strings.TrimSpace(s.Weight) == "" {
		return &ValidationError{Field: "weight", Message: "weight is required to complete a set"}
	}
	if strings.TrimSpace(s.Reps) == "" {
		return &ValidationError{Field: "reps", Message: "reps are required to complete a set"}
	}
	return nil
}

// RestSeconds returns the rest to run after this set, falling back to the
// exercise default.
func (e Exercise) RestSeconds(set int) int {
	if set >= 0 && set < len(e.Sets) && e.Sets[set].Rest > 0 {
		return e.Sets[set].Rest
	}
	return e.RestTime
}

// Clone returns a deep copy so callers cannot mutate store-owned slices.
func (w WorkoutSession) Clone() WorkoutSession {
	out := w
	out.Exercises = make([]Exercise, len(w.Exercises))
	for i, ex := range w.Exercises {
		out.Exercises[i] = ex.clone()
	}
	return out
}

func (e Exercise) clone() Exercise {
	out := e
	out.Sets = make([]SetEntry, len(e.Sets))
	for i, s := range e.Sets {
		out.Sets[i] = s
		if s.Previous != nil {
			prev := *s.Previous
			out.Sets[i].Previous = &prev
		}
	}
	return out
}

// SessionPatch is a shallow update to the active session. Nil fields are
// left unchanged.
type SessionPatch struct {
	Name       *string     `json:"name,omitempty"`
	Exercises  []Exercise  `json:"exercises,omitempty"`
	Note       *string     `json:"note,omitempty"`
	Photo      *string     `json:"photo,omitempty"`
	WeightUnit *WeightUnit `json:"weightUnit,omitempty"`
	StartTime  *time.Time  `json:"startTime,omitempty"`
}

// Validate checks the fields the patch sets.
func (p SessionPatch) Validate() error {
	if p.WeightUnit != nil && !p.WeightUnit.Valid() {
		return &ValidationError{Field: "weightUnit", Message: "weight unit must be kg or lbs"}
	}
	if p.StartTime != nil && p.StartTime.IsZero() {
		return &ValidationError{Field: "startTime", Message: "start time must be set"}
	}
	return validateExercises(p.Exercises)
}

// Apply merges p into w.
func (p SessionPatch) Apply(w *WorkoutSession) {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Exercises != nil {
		w.Exercises = WorkoutSession{Exercises: p.Exercises}.Clone().Exercises
	}
	if p.Note != nil {
		w.Note = *p.Note
	}
	if p.Photo != nil {
		w.Photo = *p.Photo
	}
	if p.WeightUnit != nil {
		w.WeightUnit = *p.WeightUnit
	}
	if p.StartTime != nil {
		w.StartTime = *p.StartTime
	}
}

func validateExercises(exercises []Exercise) error {
	for _, ex := range exercises {
		if ex.RestTime < 0 {
			return &ValidationError{Field: "restTime", Message: "rest time must not be negative"}
		}
		for _, s := range ex.Sets {
			if s.Rest < 0 {
				return &ValidationError{Field: "rest", Message: "rest must not be negative"}
			}
			if s.Completed {
				if err := s.CanComplete(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// WorkoutView is the active session as shown to clients.
type WorkoutView struct {
	Session        WorkoutSession `json:"session"`
	ElapsedSeconds int64          `json:"elapsedSeconds"`
	Minimized      bool           `json:"minimized"`
}

// SetCompletion is the result of toggling a set. RestSeconds is the rest
// countdown started for it, 0 when none was.
type SetCompletion struct {
	Exercise    int      `json:"exercise"`
	Set         int      `json:"set"`
	Entry       SetEntry `json:"entry"`
	RestSeconds int      `json:"restSeconds"`
}
