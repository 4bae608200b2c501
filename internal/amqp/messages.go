package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"atelier/internal/core"
)

// LedgerSyncMessage asks the worker to export one payment or business
// expense. Only the key travels; the worker reads the row from the database.
type LedgerSyncMessage struct {
	Kind      core.LedgerKind `json:"kind"`
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewLedgerSyncMessage(kind core.LedgerKind, id int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{Kind: kind, ID: id, Timestamp: time.Now()}
}

func (m *LedgerSyncMessage) Validate() error {
	if !m.Kind.Valid() {
		return fmt.Errorf("invalid ledger kind %q", m.Kind)
	}
	if m.ID <= 0 {
		return errors.New("ledger message without id")
	}
	return nil
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

type NotificationKind string

const (
	NotifyConfirmation NotificationKind = "confirmation"
	NotifyReschedule   NotificationKind = "reschedule"
)

// NotificationMessage carries everything needed to tell a client about an
// appointment without another database round trip. ID lets consumers drop
// redeliveries.
type NotificationMessage struct {
	ID            uuid.UUID        `json:"id"`
	Kind          NotificationKind `json:"kind"`
	AppointmentID int64            `json:"appointmentId"`
	ClientName    string           `json:"clientName"`
	Email         string           `json:"email"`
	ServiceName   string           `json:"serviceName"`
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	Timestamp     time.Time        `json:"timestamp"`
}

// NewNotificationMessage builds a message for a booked or moved appointment.
// The appointment must carry its client and service.
func NewNotificationMessage(kind NotificationKind, a core.Appointment) (*NotificationMessage, error) {
	if a.Client == nil || a.Service == nil {
		return nil, errors.New("appointment is missing client or service")
	}
	msg := &NotificationMessage{
		ID:            uuid.New(),
		Kind:          kind,
		AppointmentID: a.ID,
		ClientName:    a.Client.Name,
		Email:         a.Client.Email,
		ServiceName:   a.Service.Name,
		Start:         a.Start,
		End:           a.End,
		Timestamp:     time.Now(),
	}
	return msg, msg.Validate()
}

func (m *NotificationMessage) Validate() error {
	switch {
	case m.Kind != NotifyConfirmation && m.Kind != NotifyReschedule:
		return fmt.Errorf("invalid notification kind %q", m.Kind)
	case m.ID == uuid.Nil:
		return errors.New("notification without id")
	case m.Email == "":
		return errors.New("notification without recipient")
	}
	return nil
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
