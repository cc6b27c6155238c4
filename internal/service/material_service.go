package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/storage"
	"go.uber.org/zap"
)

const studentMaterialsLimit = 50

// MaterialFile загружаемый файл материала
type MaterialFile struct {
	Name   string
	Reader io.Reader
}

// AddMaterialInput новый материал для ученика: нужен файл, ссылка или описание
type AddMaterialInput struct {
	StudentID   int64         `json:"student_id" validate:"required,gt=0"`
	Title       string        `json:"title" validate:"required,max=200"`
	Description string        `json:"description" validate:"max=4000"`
	LinkURL     string        `json:"link_url" validate:"omitempty,url,max=1000"`
	File        *MaterialFile `json:"-"`
}

type MaterialService struct {
	materialRepo MaterialStore
	userRepo     UserStore
	blobs        BlobStorage
	policy       storage.ExtensionPolicy
	logger       *zap.Logger
}

func NewMaterialService(materialRepo MaterialStore, userRepo UserStore, blobs BlobStorage, policy storage.ExtensionPolicy, logger *zap.Logger) *MaterialService {
	return &MaterialService{
		materialRepo: materialRepo,
		userRepo:     userRepo,
		blobs:        blobs,
		policy:       policy,
		logger:       logger,
	}
}

// Add сохраняет материал. Файл проверяется по расширению до записи на диск;
// если запись в БД не удалась, файл удаляется.
func (s *MaterialService) Add(ctx context.Context, id authz.Identity, in AddMaterialInput) (*model.Material, error) {
	if err := authz.RequireRole(id, model.RoleTeacher).Err(id, "add material"); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LinkURL = strings.TrimSpace(in.LinkURL)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	hasFile := in.File != nil && in.File.Name != ""
	if !hasFile && in.LinkURL == "" && in.Description == "" {
		return nil, apperr.NewValidation("file", "file, link or description is required")
	}
	if hasFile && !s.policy.Allows(in.File.Name) {
		return nil, apperr.NewValidation("file", "file type is not allowed")
	}

	student, err := s.userRepo.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, apperr.NewValidation("student_id", "unknown student")
	}
	if err := authz.CanBookFor(id, student).Err(id, "add material"); err != nil {
		return nil, err
	}

	m := &model.Material{
		TeacherID:   id.UserID,
		StudentID:   student.ID,
		Title:       in.Title,
		Description: in.Description,
		LinkURL:     in.LinkURL,
	}

	if hasFile {
		stored, err := s.blobs.Save(ctx, in.File.Name, in.File.Reader)
		if err != nil {
			return nil, fmt.Errorf("save material file: %w", err)
		}
		m.StoredName = stored
		m.FileName = storage.SanitizeFileName(in.File.Name)
	}

	if err := s.materialRepo.Create(ctx, m); err != nil {
		if m.HasFile() {
			if rmErr := s.blobs.Remove(m.StoredName); rmErr != nil {
				s.logger.Warn("Failed to remove orphaned material file",
					zap.String("stored_name", m.StoredName),
					zap.Error(rmErr),
				)
			}
		}
		return nil, fmt.Errorf("create material: %w", err)
	}

	s.logger.Info("Material added",
		zap.Int64("material_id", m.ID),
		zap.Int64("teacher_id", m.TeacherID),
		zap.Int64("student_id", m.StudentID),
		zap.Bool("has_file", m.HasFile()),
	)

	return m, nil
}

// ListForStudent материалы ученика, новые первыми. Учитель видит только свои.
func (s *MaterialService) ListForStudent(ctx context.Context, id authz.Identity, studentID int64) ([]*model.Material, error) {
	var teacherID *int64

	switch id.Role {
	case model.RoleStudent:
		if studentID != id.UserID {
			return nil, &apperr.OwnershipError{Action: "list materials", UserID: id.UserID, Reason: "materials of another student"}
		}
	case model.RoleTeacher:
		tid := id.UserID
		teacherID = &tid
	default:
		return nil, authz.RequireRole(id, model.RoleStudent, model.RoleTeacher).Err(id, "list materials")
	}

	materials, err := s.materialRepo.ListForStudent(ctx, studentID, teacherID, studentMaterialsLimit)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// Open открывает файл материала для учителя-владельца или ученика
func (s *MaterialService) Open(ctx context.Context, id authz.Identity, materialID int64) (*model.Material, io.ReadCloser, error) {
	m, err := s.get(ctx, materialID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.CanReadMaterial(id, m).Err(id, "download material"); err != nil {
		return nil, nil, err
	}
	if !m.HasFile() {
		return m, nil, fmt.Errorf("material %d file: %w", materialID, apperr.ErrNotFound)
	}

	rc, err := s.blobs.Open(m.StoredName)
	if err != nil {
		return nil, nil, fmt.Errorf("open material file: %w", err)
	}
	return m, rc, nil
}

// Delete удаляет материал; ошибка удаления файла только логируется
func (s *MaterialService) Delete(ctx context.Context, id authz.Identity, materialID int64) error {
	m, err := s.get(ctx, materialID)
	if err != nil {
		return err
	}
	if err := authz.CanManageMaterial(id, m).Err(id, "delete material"); err != nil {
		return err
	}

	if err := s.materialRepo.Delete(ctx, m.ID); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}

	if m.HasFile() {
		if err := s.blobs.Remove(m.StoredName); err != nil {
			s.logger.Warn("Failed to remove material file",
				zap.Int64("material_id", m.ID),
				zap.String("stored_name", m.StoredName),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Material deleted", zap.Int64("material_id", m.ID), zap.Int64("teacher_id", id.UserID))
	return nil
}

func (s *MaterialService) get(ctx context.Context, materialID int64) (*model.Material, error) {
	m, err := s.materialRepo.GetByID(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("material %d: %w", materialID, apperr.ErrNotFound)
	}
	return m, nil
}
