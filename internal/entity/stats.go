package entity

// GroupCount is one group of a stats aggregation. Groups with no tasks are
// never produced.
type GroupCount struct {
	Value string `json:"_id"`
	Count int64  `json:"count"`
}

type TaskStats struct {
	TotalTasks int64        `json:"totalTasks"`
	ByStatus   []GroupCount `json:"byStatus"`
	ByPriority []GroupCount `json:"byPriority"`
}

// CountTasks aggregates tasks the way the stores group them.
func CountTasks(tasks []Task) TaskStats {
	byStatus := map[string]int64{}
	byPriority := map[string]int64{}
	for _, t := range tasks {
		byStatus[string(t.Status)]++
		byPriority[string(t.Priority)]++
	}
	return TaskStats{
		TotalTasks: int64(len(tasks)),
		ByStatus:   toGroups(byStatus),
		ByPriority: toGroups(byPriority),
	}
}

func toGroups(m map[string]int64) []GroupCount {
	out := make([]GroupCount, 0, len(m))
	for k, v := range m {
		out = append(out, GroupCount{Value: k, Count: v})
	}
	return out
}
