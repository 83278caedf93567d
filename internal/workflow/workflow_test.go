package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusCatalogueIsOrdered(t *testing.T) {
	list := Statuses()
	require.Len(t, list, 7)
	for i, status := range list {
		require.Equal(t, StatusID(i+1), status.ID)
		require.Equal(t, i+1, status.SortOrder)
	}

	status, ok := StatusByCode(" Under_Review ")
	require.True(t, ok)
	require.Equal(t, StatusUnderReview, status.ID)

	_, ok = LookupStatus(StatusID(42))
	require.False(t, ok)
	require.False(t, StatusID(0).Valid())
}

func TestStampsCoverTimestampedStatuses(t *testing.T) {
	stamps := Stamps()
	require.Equal(t, StampSubmittedAt, stamps[StatusSubmitted])
	require.Equal(t, StampApprovedAt, stamps[StatusApproved])
	require.Equal(t, StampArchivedAt, stamps[StatusArchived])
	_, ok := stamps[StatusRejected]
	require.False(t, ok)

	stamps[StatusRejected] = "rejected_at"
	_, ok = Stamps()[StatusRejected]
	require.False(t, ok, "Stamps must return a copy")
}

func TestNormalizeReviewerRole(t *testing.T) {
	cases := map[string]string{
		"":           ReviewerRoleReviewer,
		"revisor":    ReviewerRoleReviewer,
		"Asesor":     ReviewerRoleAdvisor,
		"sinodal":    ReviewerRoleJury,
		"co-advisor": ReviewerRoleCoAdvisor,
		"jury":       ReviewerRoleJury,
	}
	for input, expected := range cases {
		got, ok := NormalizeReviewerRole(input)
		require.True(t, ok, input)
		require.Equal(t, expected, got, input)
	}

	_, ok := NormalizeReviewerRole("janitor")
	require.False(t, ok)
}

func TestRoleHelpers(t *testing.T) {
	require.True(t, CanReview("Teacher"))
	require.True(t, CanReview(RoleCommittee))
	require.False(t, CanReview(RoleStudent))
	require.True(t, ReadsAll(RoleLibrary))
	require.False(t, ReadsAll(RoleTeacher))
}

func TestStrictPolicy(t *testing.T) {
	policy := NewPolicy(true)
	require.True(t, policy.Strict())

	access, verdict := policy.Authorize(StatusUnderReview, StatusApproved, "teacher")
	require.Equal(t, VerdictAllowed, verdict)
	require.Equal(t, AccessAssigned, access)

	access, verdict = policy.Authorize(StatusUnderReview, StatusApproved, RoleCommittee)
	require.Equal(t, VerdictAllowed, verdict)
	require.Equal(t, AccessAny, access)

	_, verdict = policy.Authorize(StatusDraft, StatusApproved, RoleCommittee)
	require.Equal(t, VerdictNoEdge, verdict)

	_, verdict = policy.Authorize(StatusUnderReview, StatusApproved, RoleStudent)
	require.Equal(t, VerdictRoleDenied, verdict)

	_, verdict = policy.Authorize(StatusApproved, StatusArchived, RoleLibrary)
	require.Equal(t, VerdictAllowed, verdict)

	_, verdict = policy.Authorize(StatusRejected, StatusArchived, RoleLibrary)
	require.Equal(t, VerdictRoleDenied, verdict)

	_, verdict = policy.Authorize(StatusArchived, StatusDraft, RoleCommittee)
	require.Equal(t, VerdictNoEdge, verdict, "archived is terminal")

	require.Equal(t, []StatusID{StatusChangesRequested, StatusApproved, StatusRejected}, policy.Targets(StatusUnderReview, RoleTeacher))
}

func TestPermissivePolicy(t *testing.T) {
	policy := NewPolicy(false)
	require.False(t, policy.Strict())

	_, verdict := policy.Authorize(StatusDraft, StatusApproved, RoleCommittee)
	require.Equal(t, VerdictAllowed, verdict)

	_, verdict = policy.Authorize(StatusDraft, StatusDraft, RoleCommittee)
	require.Equal(t, VerdictNoEdge, verdict)

	access, verdict := policy.Authorize(StatusSubmitted, StatusRejected, RoleTeacher)
	require.Equal(t, VerdictAllowed, verdict)
	require.Equal(t, AccessAssigned, access)

	_, verdict = policy.Authorize(StatusSubmitted, StatusArchived, RoleTeacher)
	require.Equal(t, VerdictRoleDenied, verdict)
}
