package core

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	OrderRental           OrderType = "RENTAL"
	OrderCustomMake       OrderType = "CUSTOM_MAKE"
	OrderCustomMakeRental OrderType = "CUSTOM_MAKE_RENTAL"

	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

type (
	OrderType         string
	AppointmentStatus string

	// Client is a family: the billing unit that commissions one or more gowns.
	Client struct {
		ID           int64         `json:"id"`
		Name         string        `json:"name"`
		Email        string        `json:"email,omitempty"`
		Phone        string        `json:"phone,omitempty"`
		WeddingDate  *time.Time    `json:"weddingDate,omitempty"`
		DueDate      *time.Time    `json:"dueDate,omitempty"` // gown needed by
		Recommended  string        `json:"recommended,omitempty"`
		Notes        string        `json:"notes,omitempty"`
		CreatedAt    time.Time     `json:"createdAt"`
		Projects     []Project     `json:"projects"`
		Payments     []Payment     `json:"payments"`
		Appointments []Appointment `json:"appointments,omitempty"`
	}

	// ClientPatch carries optional fields for a partial client update.
	ClientPatch struct {
		Name        *string
		Email       *string
		Phone       *string
		WeddingDate **time.Time
		DueDate     **time.Time
		Recommended *string
		Notes       *string
	}

	// Project is one gown ordered for a family member.
	Project struct {
		ID           int64            `json:"id"`
		ClientID     int64            `json:"clientId"`
		MemberName   string           `json:"memberName"`
		OrderType    OrderType        `json:"orderType"`
		Price        Money            `json:"price"`
		IsPickedUp   bool             `json:"isPickedUp"`
		Expenses     []ProjectExpense `json:"expenses"`
		Measurements []Measurement    `json:"measurements,omitempty"`
	}

	// ProjectExpense is an itemized extra cost on a gown (fabric, dying...).
	ProjectExpense struct {
		ID        int64     `json:"id"`
		ProjectID int64     `json:"projectId"`
		Type      string    `json:"type"`
		Amount    Money     `json:"amount"`
		Date      time.Time `json:"date"`
	}

	// BusinessExpense is internal overhead not tied to any gown.
	BusinessExpense struct {
		ID          int64     `json:"id"`
		Type        string    `json:"type"`
		Description string    `json:"description,omitempty"`
		Amount      Money     `json:"amount"`
		Date        time.Time `json:"date"`
	}

	// Payment is money received from a family, applied to the family bill.
	Payment struct {
		ID       int64     `json:"id"`
		ClientID int64     `json:"clientId"`
		Amount   Money     `json:"amount"`
		Date     time.Time `json:"date"`
		Method   string    `json:"method,omitempty"`
		Note     string    `json:"note,omitempty"`
	}

	// Measurement holds body measurements in centimetres for one gown.
	Measurement struct {
		ID             int64     `json:"id"`
		ProjectID      int64     `json:"projectId"`
		Date           time.Time `json:"date"`
		Bust           float64   `json:"bust"`
		Waist          float64   `json:"waist"`
		Hips           float64   `json:"hips"`
		ShirtLength    float64   `json:"shirtLength"`
		SkirtLength    float64   `json:"skirtLength"`
		SleeveLength   float64   `json:"sleeveLength"`
		SleeveWidth    float64   `json:"sleeveWidth"`
		ShoulderToBust float64   `json:"shoulderToBust"`
		Notes          string    `json:"notes,omitempty"`
	}

	Service struct {
		ID                 int64  `json:"id"`
		Name               string `json:"name"`
		DefaultDurationMin int    `json:"defaultDurationMin"`
		Active             bool   `json:"active"`
	}

	Appointment struct {
		ID               int64             `json:"id"`
		ClientID         int64             `json:"clientId"`
		ServiceID        int64             `json:"serviceId"`
		Start            time.Time         `json:"start"`
		End              time.Time         `json:"end"`
		DurationMinutes  int               `json:"durationMinutes"`
		Status           AppointmentStatus `json:"status"`
		Notes            string            `json:"notes,omitempty"`
		ConfirmationSent bool              `json:"confirmationSent"`
		Service          *Service          `json:"service,omitempty"`
		Client           *Client           `json:"client,omitempty"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("name is required")
	ErrEmptyMemberName  = errors.New("member name is required")
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrEmptyExpenseType = errors.New("expense type is required")
	ErrMissingDate      = errors.New("date is required")
	ErrMissingClient    = errors.New("client is missing")
	ErrMissingProject   = errors.New("project is missing")
	ErrInvalidTimeRange = errors.New("end must be after start")
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrEmptyServiceName = errors.New("service name is required")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCancelled = errors.New("appointment already cancelled")
)

var phonePattern = regexp.MustCompile(`^([+]?[\s0-9]{1,3})?([\s0-9]{9,12})$`)

// ValidationError collects per-field messages so callers can report all of
// them at once.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field string, err error) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = err.Error()
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

var inputErrors = []error{
	ErrInvalidAmount, ErrEmptyName, ErrEmptyMemberName, ErrInvalidOrderType,
	ErrEmptyExpenseType, ErrMissingDate, ErrMissingClient, ErrMissingProject, ErrInvalidTimeRange,
	ErrInvalidDuration, ErrEmptyServiceName, ErrInvalidPeriod,
}

// IsValidation reports whether err was caused by bad input rather than by
// storage or transport.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (t OrderType) Valid() bool {
	switch t {
	case OrderRental, OrderCustomMake, OrderCustomMakeRental:
		return true
	}
	return false
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) < 2 {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return errors.New("invalid phone number")
	}
	return nil
}

func (c Client) Validate() error {
	ve := &ValidationError{}
	if err := validateName(c.Name); err != nil {
		ve.add("name", err)
	}
	if err := validateEmail(c.Email); err != nil {
		ve.add("email", err)
	}
	if err := validatePhone(c.Phone); err != nil {
		ve.add("phone", err)
	}
	for i, p := range c.Projects {
		if err := p.validateFields(); err != nil {
			ve.add(fmt.Sprintf("projects[%d]", i), err)
		}
	}
	return ve.orNil()
}

// Apply returns a copy of c with the patch applied and validates the result.
func (p ClientPatch) Apply(c Client) (Client, error) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		c.Email = strings.TrimSpace(*p.Email)
	}
	if p.Phone != nil {
		c.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.WeddingDate != nil {
		c.WeddingDate = *p.WeddingDate
	}
	if p.DueDate != nil {
		c.DueDate = *p.DueDate
	}
	if p.Recommended != nil {
		c.Recommended = *p.Recommended
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	// Relations are not part of a patch.
	check := c
	check.Projects = nil
	if err := check.Validate(); err != nil {
		return Client{}, err
	}
	return c, nil
}

func (p Project) validateFields() error {
	if strings.TrimSpace(p.MemberName) == "" {
		return ErrEmptyMemberName
	}
	if !p.OrderType.Valid() {
		return ErrInvalidOrderType
	}
	if p.Price.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p Project) Validate() error {
	if p.ClientID <= 0 {
		return ErrMissingClient
	}
	return p.validateFields()
}

func (e ProjectExpense) Validate() error {
	if e.ProjectID <= 0 {
		return ErrMissingProject
	}
	if strings.TrimSpace(e.Type) == "" {
		return ErrEmptyExpenseType
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e BusinessExpense) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return ErrEmptyExpenseType
	}
	if len(e.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	return e.Amount.Validate()
}

func (p Payment) Validate() error {
	if p.ClientID <= 0 {
		return ErrMissingClient
	}
	if p.Date.IsZero() {
		return ErrMissingDate
	}
	return p.Amount.Validate()
}

func (m Measurement) Validate() error {
	ve := &ValidationError{}
	if m.ProjectID <= 0 {
		ve.add("projectId", errors.New("project is required"))
	}
	m.validateValues(ve)
	return ve.orNil()
}

// ValidateValues checks only the measured values, for updates that keep the
// owning project.
func (m Measurement) ValidateValues() error {
	ve := &ValidationError{}
	m.validateValues(ve)
	return ve.orNil()
}

func (m Measurement) validateValues(ve *ValidationError) {
	fields := []struct {
		name  string
		label string
		v     float64
	}{
		{"bust", "Bust", m.Bust},
		{"waist", "Waist", m.Waist},
		{"hips", "Hips", m.Hips},
		{"shirtLength", "Shirt length", m.ShirtLength},
		{"skirtLength", "Skirt length", m.SkirtLength},
		{"sleeveLength", "Sleeve length", m.SleeveLength},
		{"sleeveWidth", "Sleeve width", m.SleeveWidth},
		{"shoulderToBust", "Shoulder to bust", m.ShoulderToBust},
	}
	for _, f := range fields {
		// NaN fails the > 0 comparison as well.
		if !(f.v > 0) {
			ve.add(f.name, fmt.Errorf("%s must be greater than 0", f.label))
		}
	}
}

func (a Appointment) Validate() error {
	if a.ClientID <= 0 {
		return ErrMissingClient
	}
	if a.Start.IsZero() || a.End.IsZero() {
		return ErrMissingDate
	}
	if !a.End.After(a.Start) {
		return ErrInvalidTimeRange
	}
	return nil
}
