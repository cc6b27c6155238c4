package model

import "time"

// Material учебный материал, выданный учителем ученику
type Material struct {
	ID          int64     `json:"id"`
	TeacherID   int64     `json:"teacher_id"`
	StudentID   int64     `json:"student_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	LinkURL     string    `json:"link_url"`
	StoredName  string    `json:"-"`         // Имя файла в хранилище
	FileName    string    `json:"file_name"` // Исходное имя файла
	CreatedAt   time.Time `json:"created_at"`
}

func (m *Material) HasFile() bool {
	return m.StoredName != ""
}
