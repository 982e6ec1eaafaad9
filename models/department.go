package models

// Department statuses.
const (
	DepartmentOpen   = "open"
	DepartmentClosed = "closed"
)

// Department is an OPD department patients book into.
type Department struct {
	ID              string  `bson:"id" json:"id"`
	Name            string  `bson:"name" json:"name"`
	Status          string  `bson:"status" json:"status"`
	ConsultationFee float64 `bson:"consultation_fee" json:"consultationFee"`
	Currency        string  `bson:"currency" json:"currency"`
}

// Doctor is a consulting doctor attached to a department.
type Doctor struct {
	ID                string `bson:"id" json:"id"`
	Name              string `bson:"name" json:"name"`
	DepartmentID      string `bson:"department_id" json:"departmentId"`
	AvgConsultMinutes int    `bson:"avg_consult_minutes" json:"avgConsultMinutes"`
	OnLeave           bool   `bson:"on_leave,omitempty" json:"onLeave,omitempty"`
}
