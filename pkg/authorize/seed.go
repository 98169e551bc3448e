package authorize

import (
	"fmt"

	"github.com/carelog/carelog_backend/internal/model"
)

// PermissionPolicy is one seeded p-rule: role may act on resource in domain.
type PermissionPolicy struct {
	Role   model.Role
	Domain Domain
	Object Resource
	Action Action
}

// defaultPolicies is the baseline RBAC matrix. Relationship constraints
// (self-only, assigned-only, author-only) are enforced by the services on
// top of these grants.
var defaultPolicies = []PermissionPolicy{
	// Patients: journal their own care, talk to their care team, request
	// and receive feedback.
	{model.RolePatient, WildcardDomain, ResourceUser, ActionRead},
	{model.RolePatient, WildcardDomain, ResourceUser, ActionUpdate},
	{model.RolePatient, WildcardDomain, ResourceNote, ActionCreate},
	{model.RolePatient, WildcardDomain, ResourceNote, ActionRead},
	{model.RolePatient, WildcardDomain, ResourceNote, ActionUpdate},
	{model.RolePatient, WildcardDomain, ResourceChannel, ActionSend},
	{model.RolePatient, WildcardDomain, ResourceChannel, ActionRead},
	{model.RolePatient, WildcardDomain, ResourceFeedback, ActionCreate},
	{model.RolePatient, WildcardDomain, ResourceFeedback, ActionRead},
	{model.RolePatient, WildcardDomain, ResourceFeedback, ActionDeliver},

	// Clinicians: clinical notes, alerts, chat, feedback review.
	{model.RoleClinician, WildcardDomain, ResourceUser, ActionRead},
	{model.RoleClinician, WildcardDomain, ResourceUser, ActionUpdate},
	{model.RoleClinician, WildcardDomain, ResourceUser, ActionList},
	{model.RoleClinician, WildcardDomain, ResourceNote, ActionCreate},
	{model.RoleClinician, WildcardDomain, ResourceNote, ActionRead},
	{model.RoleClinician, WildcardDomain, ResourceNote, ActionUpdate},
	{model.RoleClinician, WildcardDomain, ResourceAlert, ActionRead},
	{model.RoleClinician, WildcardDomain, ResourceAlert, ActionAcknowledge},
	{model.RoleClinician, WildcardDomain, ResourceChannel, ActionSend},
	{model.RoleClinician, WildcardDomain, ResourceChannel, ActionRead},
	{model.RoleClinician, WildcardDomain, ResourceFeedback, ActionRead},
	{model.RoleClinician, WildcardDomain, ResourceFeedback, ActionDraft},
	{model.RoleClinician, WildcardDomain, ResourceFeedback, ActionReview},

	// Admins: tenant administration plus full read access. Feedback review
	// stays clinician-gated; drafting (writing back the generated text) is
	// allowed so an admin-run worker can fill drafts.
	{model.RoleAdmin, WildcardDomain, ResourceUser, ActionRead},
	{model.RoleAdmin, WildcardDomain, ResourceUser, ActionUpdate},
	{model.RoleAdmin, WildcardDomain, ResourceUser, ActionList},
	{model.RoleAdmin, WildcardDomain, ResourceUser, ActionApprove},
	{model.RoleAdmin, WildcardDomain, ResourceUser, ActionReject},
	{model.RoleAdmin, WildcardDomain, ResourceUser, ActionDelete},
	{model.RoleAdmin, WildcardDomain, ResourceAssignment, ActionCreate},
	{model.RoleAdmin, WildcardDomain, ResourceAssignment, ActionDelete},
	{model.RoleAdmin, WildcardDomain, ResourceAssignment, ActionList},
	{model.RoleAdmin, WildcardDomain, ResourceNote, ActionRead},
	{model.RoleAdmin, WildcardDomain, ResourceAlert, ActionRead},
	{model.RoleAdmin, WildcardDomain, ResourceAlert, ActionAcknowledge},
	{model.RoleAdmin, WildcardDomain, ResourceChannel, ActionSend},
	{model.RoleAdmin, WildcardDomain, ResourceChannel, ActionRead},
	{model.RoleAdmin, WildcardDomain, ResourceFeedback, ActionRead},
	{model.RoleAdmin, WildcardDomain, ResourceFeedback, ActionDraft},
	{model.RoleAdmin, WildcardDomain, ResourcePolicy, ActionUpdate},
}

func (a *Authorization) seed() error {
	for _, p := range defaultPolicies {
		if _, err := a.enforcer.AddPolicy(string(p.Role), string(p.Domain), string(p.Object), string(p.Action)); err != nil {
			return fmt.Errorf("seed policy %v: %w", p, err)
		}
	}
	return nil
}
