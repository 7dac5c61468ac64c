package dashboards

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"hrminsights/internal/domain/records"
)

type RoleMember struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RoleSummary struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Details         string       `json:"details,omitempty"`
	PermissionCount int          `json:"permissionCount"`
	UserCount       int          `json:"userCount"`
	Members         []RoleMember `json:"members"`
}

// RolesOverview lists roles by name with their resolved members and counts
// the employees that hold no role. Member ids the employee list does not
// know are kept with an empty name.
func RolesOverview(roles []records.Role, emps []records.Employee) ([]RoleSummary, int) {
	names := lo.SliceToMap(emps, func(e records.Employee) (string, string) { return e.ID, e.Name })
	assigned := map[string]struct{}{}

	out := make([]RoleSummary, 0, len(roles))
	for _, r := range roles {
		ids := lo.Uniq(r.Users)
		members := make([]RoleMember, 0, len(ids))
		for _, id := range ids {
			members = append(members, RoleMember{ID: id, Name: names[id]})
			assigned[id] = struct{}{}
		}
		out = append(out, RoleSummary{
			ID:              r.ID,
			Name:            r.Name,
			Details:         r.Details,
			PermissionCount: r.PermissionCount,
			UserCount:       len(members),
			Members:         members,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	unassigned := lo.CountBy(emps, func(e records.Employee) bool {
		_, ok := assigned[e.ID]
		return !ok
	})
	return out, unassigned
}
