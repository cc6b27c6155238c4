package service

import (
	"context"
	"io"

	"github.com/Freeeeeet/tutor_scheduler/internal/export"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
)

// LessonStore хранилище уроков; RunSerializable выполняет проверку и запись атомарно
type LessonStore interface {
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	List(ctx context.Context, q repository.LessonQuery) ([]*model.Lesson, error)
	RunSerializable(ctx context.Context, fn func(tx repository.LessonTx) error) error
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	ListStudentsOfTeacher(ctx context.Context, teacherID int64) ([]*model.User, error)
	FirstTeacher(ctx context.Context) (*model.User, error)
	SetTeacher(ctx context.Context, studentID int64, teacherID *int64) error
	SetRate(ctx context.Context, userID int64, rateCents int64) error
	SetRole(ctx context.Context, userID int64, role model.Role) error
}

type MaterialStore interface {
	Create(ctx context.Context, m *model.Material) error
	GetByID(ctx context.Context, id int64) (*model.Material, error)
	ListForStudent(ctx context.Context, studentID int64, teacherID *int64, limit int) ([]*model.Material, error)
	Delete(ctx context.Context, id int64) error
}

type LeadStore interface {
	Create(ctx context.Context, lead *model.Lead) error
}

// BlobStorage файловое хранилище материалов
type BlobStorage interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Open(storedName string) (io.ReadCloser, error)
	Remove(storedName string) error
}

// ReportExporter превращает сводку в документ
type ReportExporter interface {
	Export(r export.LessonsReport) ([]byte, error)
	Filename(r export.LessonsReport) string
	ContentType() string
	Extension() string
}

var (
	_ LessonStore    = (*repository.LessonRepository)(nil)
	_ UserStore      = (*repository.UserRepository)(nil)
	_ MaterialStore  = (*repository.MaterialRepository)(nil)
	_ LeadStore      = (*repository.LeadRepository)(nil)
	_ ReportExporter = (*export.LessonsExcel)(nil)
)
