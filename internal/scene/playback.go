package scene

// ActiveAt returns the scene on screen at t seconds: the last scene in list
// order whose StartTime has passed. Before the first start time the first
// scene is shown. ok is false only for an empty list.
func ActiveAt(scenes []Scene, t float64) (Scene, int, bool) {
	if len(scenes) == 0 {
		return Scene{}, -1, false
	}
	active := 0
	for i, s := range scenes {
		if s.StartTime <= t {
			active = i
		}
	}
	return scenes[active], active, true
}

// TotalDuration returns the latest EndTime in the plan.
func TotalDuration(scenes []Scene) float64 {
	var end float64
	for _, s := range scenes {
		if s.EndTime > end {
			end = s.EndTime
		}
	}
	return end
}
