package progress

import "slices"

// sortedUnique возвращает отсортированную копию без повторов.
func sortedUnique(ids ...[]int) []int {
	out := make([]int, 0)
	for _, s := range ids {
		out = append(out, s...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func contains(ids []int, id int) bool {
	return slices.Contains(ids, id)
}

func maxOf(ids []int) int {
	if len(ids) == 0 {
		return 0
	}
	return slices.Max(ids)
}

// coversAll сообщает, входят ли все want в have. Пустой want не считается покрытым.
func coversAll(have, want []int) bool {
	if len(want) == 0 {
		return false
	}
	for _, id := range want {
		if !slices.Contains(have, id) {
			return false
		}
	}
	return true
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
