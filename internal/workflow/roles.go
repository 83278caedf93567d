package workflow

import "strings"

// Account roles.
const (
	RoleStudent   = "student"
	RoleTeacher   = "teacher"
	RoleCommittee = "committee"
	RoleLibrary   = "library"
)

// Reviewer role types.
const (
	ReviewerRoleAdvisor   = "advisor"
	ReviewerRoleCoAdvisor = "co_advisor"
	ReviewerRoleReviewer  = "reviewer"
	ReviewerRoleJury      = "jury"
)

var reviewerRoleTypes = map[string]string{
	ReviewerRoleAdvisor:   ReviewerRoleAdvisor,
	ReviewerRoleCoAdvisor: ReviewerRoleCoAdvisor,
	ReviewerRoleReviewer:  ReviewerRoleReviewer,
	ReviewerRoleJury:      ReviewerRoleJury,
	"co-advisor":          ReviewerRoleCoAdvisor,
	"coadvisor":           ReviewerRoleCoAdvisor,
	"asesor":              ReviewerRoleAdvisor,
	"revisor":             ReviewerRoleReviewer,
	"sinodal":             ReviewerRoleJury,
}

// NormalizeRole lowercases and trims an account role.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// NormalizeReviewerRole maps an input role type onto the fixed set. An
// empty input defaults to reviewer.
func NormalizeReviewerRole(roleType string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(roleType))
	if normalized == "" {
		return ReviewerRoleReviewer, true
	}
	canonical, ok := reviewerRoleTypes[normalized]
	return canonical, ok
}

// CanReview reports whether an account role may be assigned as reviewer.
func CanReview(role string) bool {
	switch NormalizeRole(role) {
	case RoleTeacher, RoleCommittee:
		return true
	default:
		return false
	}
}

// ReadsAll reports whether a role may read every project.
func ReadsAll(role string) bool {
	switch NormalizeRole(role) {
	case RoleCommittee, RoleLibrary:
		return true
	default:
		return false
	}
}
