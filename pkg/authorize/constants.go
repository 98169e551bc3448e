package authorize

type Action string
type Resource string
type Domain string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// Workflow actions
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionAcknowledge Action = "acknowledge"
	ActionSend        Action = "send"
	ActionDraft       Action = "draft"
	ActionReview      Action = "review"
	ActionDeliver     Action = "deliver"
)

const WildcardAction Action = "*"

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionList: {}, ActionUpdate: {}, ActionDelete: {},
	ActionApprove: {}, ActionReject: {}, ActionAcknowledge: {},
	ActionSend: {}, ActionDraft: {}, ActionReview: {}, ActionDeliver: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	ResourceUser       Resource = "user"
	ResourceAssignment Resource = "assignment"
	ResourceNote       Resource = "note"
	ResourceAlert      Resource = "alert"
	ResourceChannel    Resource = "channel"
	ResourceFeedback   Resource = "feedback"
	ResourcePolicy     Resource = "hospital_policy"
)

var KnownResources = map[Resource]struct{}{
	ResourceUser: {}, ResourceAssignment: {}, ResourceNote: {}, ResourceAlert: {},
	ResourceChannel: {}, ResourceFeedback: {}, ResourcePolicy: {},
}

// WildcardDomain matches any hospital. All seeded role policies use it;
// per-hospital overrides are possible but none are seeded.
const WildcardDomain Domain = "*"
