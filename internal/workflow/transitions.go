package workflow

// Access qualifies how a role may take a transition.
type Access int

const (
	// AccessAny lets any account holding the role take the transition.
	AccessAny Access = iota + 1
	// AccessAssigned requires the account to be an active reviewer of the project.
	AccessAssigned
	// AccessAuthor requires the account to be an author of the project.
	AccessAuthor
)

// Verdict is the outcome of a policy check.
type Verdict int

const (
	// VerdictAllowed means the role may take the transition, subject to Access.
	VerdictAllowed Verdict = iota + 1
	// VerdictNoEdge means the transition is not part of the graph.
	VerdictNoEdge
	// VerdictRoleDenied means the edge exists but the role may not take it.
	VerdictRoleDenied
)

type edge struct {
	from StatusID
	to   StatusID
}

// Policy is the transition graph keyed by (from, to) with the roles allowed
// to take each edge. Policies are immutable once built.
type Policy struct {
	strict bool
	edges  map[edge]map[string]Access
}

// NewPolicy builds the transition policy. Strict policies only allow the
// edges of the lifecycle graph; permissive policies allow any change to a
// different status for committee members and review outcomes for assigned
// teachers.
func NewPolicy(strict bool) Policy {
	if !strict {
		return Policy{strict: false, edges: permissiveEdges()}
	}
	return Policy{strict: true, edges: strictEdges()}
}

// Strict reports whether the policy enforces the lifecycle graph.
func (p Policy) Strict() bool {
	return p.strict
}

// Authorize checks whether role may move a project from one status to another.
// When the verdict is VerdictAllowed the returned Access tells the caller which
// relationship with the project must also hold.
func (p Policy) Authorize(from, to StatusID, role string) (Access, Verdict) {
	roles, ok := p.edges[edge{from: from, to: to}]
	if !ok {
		return 0, VerdictNoEdge
	}
	access, ok := roles[NormalizeRole(role)]
	if !ok {
		return 0, VerdictRoleDenied
	}
	return access, VerdictAllowed
}

// Targets lists the statuses reachable from a status by the given role.
func (p Policy) Targets(from StatusID, role string) []StatusID {
	normalized := NormalizeRole(role)
	out := make([]StatusID, 0)
	for _, status := range Statuses() {
		roles, ok := p.edges[edge{from: from, to: status.ID}]
		if !ok {
			continue
		}
		if _, allowed := roles[normalized]; allowed {
			out = append(out, status.ID)
		}
	}
	return out
}

func strictEdges() map[edge]map[string]Access {
	committee := map[string]Access{RoleCommittee: AccessAny}
	review := map[string]Access{RoleCommittee: AccessAny, RoleTeacher: AccessAssigned}

	return map[edge]map[string]Access{
		{StatusDraft, StatusSubmitted}:              {RoleStudent: AccessAuthor, RoleCommittee: AccessAny},
		{StatusSubmitted, StatusUnderReview}:        committee,
		{StatusSubmitted, StatusChangesRequested}:   committee,
		{StatusSubmitted, StatusRejected}:           committee,
		{StatusUnderReview, StatusChangesRequested}: review,
		{StatusUnderReview, StatusApproved}:         review,
		{StatusUnderReview, StatusRejected}:         review,
		{StatusChangesRequested, StatusUnderReview}: review,
		{StatusChangesRequested, StatusSubmitted}:   committee,
		{StatusApproved, StatusArchived}:            {RoleCommittee: AccessAny, RoleLibrary: AccessAny},
		{StatusRejected, StatusArchived}:            committee,
	}
}

func permissiveEdges() map[edge]map[string]Access {
	outcomes := map[StatusID]bool{
		StatusChangesRequested: true,
		StatusApproved:         true,
		StatusRejected:         true,
	}

	edges := make(map[edge]map[string]Access)
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			if from.ID == to.ID {
				continue
			}
			roles := map[string]Access{RoleCommittee: AccessAny}
			if outcomes[to.ID] {
				roles[RoleTeacher] = AccessAssigned
			}
			if to.ID == StatusArchived && from.ID == StatusApproved {
				roles[RoleLibrary] = AccessAny
			}
			edges[edge{from.ID, to.ID}] = roles
		}
	}
	return edges
}
