package runtime

// Phase is the step of the update cycle the Driver is executing.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseIngesting
	PhaseEncoding
	PhaseFlushing
	PhasePruning
	PhaseRectUpdating
	PhaseCommitting
)

var phaseNames = [...]string{
	PhaseIdle:         "idle",
	PhaseIngesting:    "ingesting",
	PhaseEncoding:     "encoding",
	PhaseFlushing:     "flushing",
	PhasePruning:      "pruning",
	PhaseRectUpdating: "rect_updating",
	PhaseCommitting:   "committing",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}
