package features

import "math"

// Engineer validates a snapshot and derives its feature vector. It is pure:
// the same snapshot always yields the same vector.
//
// Zero denominators are the only silent normalisation. An empty project
// divides by its task count of 0 and a project with no open tasks divides
// by its open count of 0; both ratios come out as 0.
func Engineer(s Snapshot) (Vector, error) {
	if err := s.Validate(); err != nil {
		return Vector{}, err
	}

	open := s.NumberOfTasks - s.NumDone

	v := Vector{
		NumberOfTasks:   s.NumberOfTasks,
		NumOpenTasks:    open,
		NumCriticalOpen: s.NumCriticalOpen,
		NumHighOpen:     s.NumHighOpen,
		NumMediumOpen:   s.NumMediumOpen,
		NumLowOpen:      s.NumLowOpen,
		NumPending:      s.NumPending,
		NumTodo:         s.NumTodo,
		NumInProgress:   s.NumInProgress,
		NumDone:         s.NumDone,
		NumBlocked:      s.NumBlocked,
		OverdueTasks:    s.OverdueTasks,
		DueToday:        s.DueToday,
		TimeOfDay:       s.TimeOfDay,

		SortedBy:                s.SortedBy,
		LastTaskCreatedLabel:    s.LastTaskCreatedLabel,
		LastTaskCreatedPriority: s.LastTaskCreatedPriority,
		LastTaskCreatedStatus:   s.LastTaskCreatedStatus,
	}

	v.PctCriticalOpen = ratio(s.NumCriticalOpen, open)
	v.PctHighOpen = ratio(s.NumHighOpen, open)
	v.PctMediumOpen = ratio(s.NumMediumOpen, open)
	v.PctLowOpen = ratio(s.NumLowOpen, open)
	v.WIPLoad = ratio(s.NumInProgress, open)

	v.PctPendingStatus = ratio(s.NumPending, s.NumberOfTasks)
	v.PctTodoStatus = ratio(s.NumTodo, s.NumberOfTasks)
	v.PctInProgressStatus = ratio(s.NumInProgress, s.NumberOfTasks)
	v.PctDoneStatus = ratio(s.NumDone, s.NumberOfTasks)
	v.PctBlockedStatus = ratio(s.NumBlocked, s.NumberOfTasks)

	v.PctOverdue = round4(ratio(s.OverdueTasks, s.NumberOfTasks))

	v.CrisisIndex = v.PctOverdue * v.PctCriticalOpen
	v.BacklogPressure = v.PctTodoStatus * v.PctLowOpen
	v.HealthScore = 0.5*v.PctOverdue + 0.3*v.PctBlockedStatus + 0.2*v.PctCriticalOpen

	statusPcts := []float64{
		v.PctPendingStatus,
		v.PctTodoStatus,
		v.PctInProgressStatus,
		v.PctDoneStatus,
		v.PctBlockedStatus,
	}
	v.StatusEntropy = Entropy(statusPcts)

	for _, n := range []int{s.NumPending, s.NumTodo, s.NumInProgress, s.NumDone, s.NumBlocked} {
		if n > 0 {
			v.NumberOfStatusesUsed++
		}
	}

	if s.LastTaskCreatedLabel == "Bug" && s.LastTaskCreatedPriority == "Kritisch" {
		v.LastActionCriticalBug = 1
	}

	return v, nil
}

// ratio divides with an explicit zero guard on the denominator.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// round4 rounds half to even at four decimals.
func round4(x float64) float64 {
	return math.RoundToEven(x*1e4) / 1e4
}

// Entropy is the Shannon entropy (natural log) of the positive entries of
// p, renormalised to sum to 1. Zero entries contribute nothing; an input
// with no positive entry has entropy 0.
func Entropy(p []float64) float64 {
	var sum float64
	for _, x := range p {
		if x > 0 {
			sum += x
		}
	}
	if sum == 0 {
		return 0
	}

	var h float64
	for _, x := range p {
		if x > 0 {
			q := x / sum
			h -= q * math.Log(q)
		}
	}
	return h
}
