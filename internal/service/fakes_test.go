package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
)

var errStoreDown = errors.New("store down")

func copyLesson(l *model.Lesson) *model.Lesson {
	c := *l
	if l.PaymentMethod != nil {
		m := *l.PaymentMethod
		c.PaymentMethod = &m
	}
	return &c
}

// fakeLessons хранит копии уроков, как это делает БД
type fakeLessons struct {
	mu      sync.Mutex
	lessons map[int64]*model.Lesson
	nextID  int64
	updates int
	txErr   error
}

func newFakeLessons(lessons ...*model.Lesson) *fakeLessons {
	f := &fakeLessons{lessons: make(map[int64]*model.Lesson)}
	for _, l := range lessons {
		f.lessons[l.ID] = copyLesson(l)
		if l.ID > f.nextID {
			f.nextID = l.ID
		}
	}
	return f
}

func (f *fakeLessons) RunSerializable(ctx context.Context, fn func(tx repository.LessonTx) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(fakeLessonTx{f})
}

func (f *fakeLessons) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id), nil
}

func (f *fakeLessons) get(id int64) *model.Lesson {
	l, ok := f.lessons[id]
	if !ok {
		return nil
	}
	return copyLesson(l)
}

func (f *fakeLessons) stored(id int64) *model.Lesson {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeLessons) List(ctx context.Context, q repository.LessonQuery) ([]*model.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Lesson
	for _, l := range f.lessons {
		if q.TeacherID != nil && l.TeacherID != *q.TeacherID {
			continue
		}
		if q.StudentID != nil && l.StudentID != *q.StudentID {
			continue
		}
		if len(q.Statuses) > 0 {
			found := false
			for _, s := range q.Statuses {
				if s.Normalize() == l.Status.Normalize() {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		if q.StartFrom != nil && l.StartAt.Before(*q.StartFrom) {
			continue
		}
		if q.StartBefore != nil && !l.StartAt.Before(*q.StartBefore) {
			continue
		}
		if q.EndedBefore != nil && !l.EndAt.Before(*q.EndedBefore) {
			continue
		}
		out = append(out, copyLesson(l))
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Order == repository.SortDesc {
			a, b = b, a
		}
		return a.StartAt.Before(b.StartAt) || (a.StartAt.Equal(b.StartAt) && a.ID < b.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

type fakeLessonTx struct{ f *fakeLessons }

func (tx fakeLessonTx) GetByIDForUpdate(ctx context.Context, id int64) (*model.Lesson, error) {
	return tx.f.get(id), nil
}

func (tx fakeLessonTx) ListOverlapping(ctx context.Context, party model.Party, partyID int64, start, end time.Time) ([]*model.Lesson, error) {
	var out []*model.Lesson
	for _, l := range tx.f.lessons {
		if l.PartyID(party) != partyID || l.Status == model.LessonStatusCancelled {
			continue
		}
		if l.EndAt.After(start) && l.StartAt.Before(end) {
			out = append(out, copyLesson(l))
		}
	}
	return out, nil
}

func (tx fakeLessonTx) Create(ctx context.Context, l *model.Lesson) error {
	tx.f.nextID++
	l.ID = tx.f.nextID
	tx.f.lessons[l.ID] = copyLesson(l)
	return nil
}

func (tx fakeLessonTx) Update(ctx context.Context, l *model.Lesson) error {
	if _, ok := tx.f.lessons[l.ID]; !ok {
		return apperr.ErrNotFound
	}
	tx.f.updates++
	tx.f.lessons[l.ID] = copyLesson(l)
	return nil
}

type fakeUsers struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*model.User), nextID: 1000}
	for _, u := range users {
		c := *u
		f.users[u.ID] = &c
	}
	return f
}

func (f *fakeUsers) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	var out []*model.User
	for _, id := range ids {
		if u, _ := f.GetByID(ctx, id); u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) Update(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[user.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Username, u.Email, u.FirstName, u.LastName = user.Username, user.Email, user.FirstName, user.LastName
	u.Grade, u.School = user.Grade, user.School
	return nil
}

func (f *fakeUsers) ListStudentsOfTeacher(ctx context.Context, teacherID int64) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.User
	for _, u := range f.users {
		if u.IsStudent() && u.BelongsTo(teacherID) {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) FirstTeacher(ctx context.Context) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first *model.User
	for _, u := range f.users {
		if u.IsTeacher() && (first == nil || u.ID < first.ID) {
			first = u
		}
	}
	if first == nil {
		return nil, nil
	}
	c := *first
	return &c, nil
}

func (f *fakeUsers) SetTeacher(ctx context.Context, studentID int64, teacherID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[studentID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.TeacherID = teacherID
	return nil
}

func (f *fakeUsers) SetRate(ctx context.Context, userID int64, rateCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.HourlyRateCents = rateCents
	return nil
}

func (f *fakeUsers) SetRole(ctx context.Context, userID int64, role model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.Role = role
	return nil
}

type fakeMaterials struct {
	materials map[int64]*model.Material
	nextID    int64
	createErr error
}

func newFakeMaterials(ms ...*model.Material) *fakeMaterials {
	f := &fakeMaterials{materials: make(map[int64]*model.Material)}
	for _, m := range ms {
		c := *m
		f.materials[m.ID] = &c
		if m.ID > f.nextID {
			f.nextID = m.ID
		}
	}
	return f
}

func (f *fakeMaterials) Create(ctx context.Context, m *model.Material) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	m.ID = f.nextID
	c := *m
	f.materials[m.ID] = &c
	return nil
}

func (f *fakeMaterials) GetByID(ctx context.Context, id int64) (*model.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (f *fakeMaterials) ListForStudent(ctx context.Context, studentID int64, teacherID *int64, limit int) ([]*model.Material, error) {
	var out []*model.Material
	for _, m := range f.materials {
		if m.StudentID != studentID || (teacherID != nil && m.TeacherID != *teacherID) {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMaterials) Delete(ctx context.Context, id int64) error {
	if _, ok := f.materials[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.materials, id)
	return nil
}

type fakeBlobs struct {
	files     map[string][]byte
	saves     int
	removeErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{files: make(map[string][]byte)}
}

func (b *fakeBlobs) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.saves++
	name := "blob_" + originalName
	b.files[name] = data
	return name, nil
}

func (b *fakeBlobs) Open(storedName string) (io.ReadCloser, error) {
	data, ok := b.files[storedName]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlobs) Remove(storedName string) error {
	if b.removeErr != nil {
		return b.removeErr
	}
	delete(b.files, storedName)
	return nil
}

type fakeLeads struct {
	leads []*model.Lead
	err   error
}

func (f *fakeLeads) Create(ctx context.Context, lead *model.Lead) error {
	if f.err != nil {
		return f.err
	}
	lead.ID = int64(len(f.leads) + 1)
	f.leads = append(f.leads, lead)
	return nil
}

type fakeNotifier struct {
	sent []notify.Message
	err  error
}

func (n *fakeNotifier) Send(ctx context.Context, msg notify.Message) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func authzStudent(id int64) authz.Identity {
	return authz.Identity{UserID: id, Role: model.RoleStudent}
}
