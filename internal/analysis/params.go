package analysis

import "fmt"

// Params are the user-supplied hyperparameters for one analysis run.
// SessionGap is in hours.
type Params struct {
	SessionGap          float64 `json:"session_gap"`
	RoleCount           int     `json:"role_count"`
	MaxIterations       int     `json:"max_iterations"`
	ProportionSmoothing float64 `json:"proportion_smoothing"`
	RoleSmoothing       float64 `json:"role_smoothing"`
}

// Validate rejects parameter combinations before any work is scheduled.
// The bounds keep a run tractable: a sub-half-hour gap shreds activity
// into single-action sessions and an iteration cap outside [100, 5000]
// either never mixes or never returns.
func (p Params) Validate() error {
	if p.SessionGap < 0.5 {
		return fmt.Errorf("session gap %.2fh below minimum 0.5h", p.SessionGap)
	}
	if p.RoleCount < 2 {
		return fmt.Errorf("role count %d below minimum 2", p.RoleCount)
	}
	if p.MaxIterations < 100 || p.MaxIterations > 5000 {
		return fmt.Errorf("max iterations %d outside [100, 5000]", p.MaxIterations)
	}
	if p.ProportionSmoothing < 0.01 {
		return fmt.Errorf("proportion smoothing %.4f below minimum 0.01", p.ProportionSmoothing)
	}
	if p.RoleSmoothing < 0.01 {
		return fmt.Errorf("role smoothing %.4f below minimum 0.01", p.RoleSmoothing)
	}
	return nil
}
