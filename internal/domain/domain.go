package domain

// Status is the lifecycle position of a Job.
type Status string

const (
	StatusRecommended Status = "recommended"
	StatusSent        Status = "sent"
	StatusQuoted      Status = "quoted"
	StatusAccepted    Status = "accepted"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusRecommended, StatusSent, StatusQuoted, StatusAccepted, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskCritical RiskLevel = "critical"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskCritical:
		return true
	}
	return false
}

type ValueEffect string

const (
	EffectProtect  ValueEffect = "protect"
	EffectIncrease ValueEffect = "increase"
)

type Driver string

const (
	DriverMaintenance Driver = "maintenance"
	DriverValue       Driver = "value"
)

type Initiator string

const (
	InitiatorCustomer     Initiator = "customer"
	InitiatorProfessional Initiator = "professional"
	InitiatorSystem       Initiator = "system"
)

// AcceptPath records how a Job reached accepted.
type AcceptPath string

const (
	AcceptViaLead  AcceptPath = "lead"
	AcceptViaQuote AcceptPath = "quote"
)

type Phase string

const (
	PhaseStart     Phase = "Start"
	PhaseExecution Phase = "Execution"
	PhaseCloseout  Phase = "Closeout"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseStart, PhaseExecution, PhaseCloseout:
		return true
	}
	return false
}

// MaxTechnicalGrade is the worst condition grade (TG3).
const MaxTechnicalGrade = 3

type Job struct {
	ID               string      `json:"id"`
	PropertyID       string      `json:"property_id"`
	UserID           *string     `json:"user_id,omitempty"`
	ProfessionalID   *string     `json:"professional_id,omitempty"`
	Title            string      `json:"title"`
	Description      string      `json:"description,omitempty"`
	Address          string      `json:"address,omitempty"`
	BeforeImages     []string    `json:"before_images,omitempty"`
	AfterImages      []string    `json:"after_images,omitempty"`
	RiskLevel        RiskLevel   `json:"risk_level" enum:"low,moderate,critical"`
	TechnicalGrade   int         `json:"technical_grade" minimum:"0" maximum:"3"`
	ValueEffect      ValueEffect `json:"value_effect" enum:"protect,increase"`
	Driver           Driver      `json:"driver" enum:"maintenance,value"`
	CostEstimate     float64     `json:"cost_estimate" minimum:"0"`
	CostMin          *float64    `json:"cost_min,omitempty"`
	CostMax          *float64    `json:"cost_max,omitempty"`
	ROIFactor        *float64    `json:"roi_factor,omitempty"`
	SubsidyAmount    *float64    `json:"subsidy_amount,omitempty"`
	QuotedPrice      *float64    `json:"quoted_price,omitempty"`
	PriorityScore    *int        `json:"priority_score,omitempty" minimum:"0" maximum:"100"`
	PredictedFailure *string     `json:"predicted_failure,omitempty"`
	Horizon          string      `json:"horizon,omitempty"`
	Status           Status      `json:"status" enum:"recommended,sent,quoted,accepted,in_progress,completed"`
	AcceptPath       *AcceptPath `json:"accept_path,omitempty" enum:"lead,quote"`
	Initiator        Initiator   `json:"initiator" enum:"customer,professional,system"`
	CreatedAt        string      `json:"created_at" format:"date-time"`
	UpdatedAt        string      `json:"updated_at" format:"date-time"`
	CompletedAt      *string     `json:"completed_at,omitempty" format:"date-time"`
}

// Critical reports whether the Job addresses a critical risk or a TG3 condition.
func (j Job) Critical() bool {
	return j.RiskLevel == RiskCritical || j.TechnicalGrade >= MaxTechnicalGrade
}

// AssignedTo reports whether the Job's professional is actorID.
func (j Job) AssignedTo(actorID string) bool {
	return j.ProfessionalID != nil && *j.ProfessionalID == actorID
}

// OwnedBy reports whether the Job's owner is actorID.
func (j Job) OwnedBy(actorID string) bool {
	return j.UserID != nil && *j.UserID == actorID
}

type Property struct {
	ID             string   `json:"id"`
	OwnerID        string   `json:"owner_id"`
	Address        string   `json:"address"`
	RegistryID     string   `json:"registry_id,omitempty"`
	YearBuilt      *int     `json:"year_built,omitempty"`
	FloorArea      *float64 `json:"floor_area,omitempty"`
	Type           string   `json:"type,omitempty"`
	EnergyGrade    string   `json:"energy_grade,omitempty"`
	EstimatedValue *float64 `json:"estimated_value,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

type ChecklistItem struct {
	JobID    string `json:"job_id"`
	ID       string `json:"id"`
	Phase    Phase  `json:"phase" enum:"Start,Execution,Closeout"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Checked  bool   `json:"checked"`
	Position int    `json:"position"`
}

// Material is a suggested line item for a Job.
type Material struct {
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	CatalogID string `json:"catalog_id,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIKey binds a hashed key to an actor and role.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
