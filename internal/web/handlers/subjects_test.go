package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/database/mock"
	"github.com/caseboard/suspect-search/internal/pipeline"
)

func seedSubject(t *testing.T, repo *mock.MockRepository, name string) *database.SubjectRecord {
	t.Helper()
	rec, err := repo.CreateSubject(context.Background(), database.SubjectMeta{Name: name})
	if err != nil {
		t.Fatalf("CreateSubject failed: %v", err)
	}
	return rec
}

func TestSubjectsList(t *testing.T) {
	repo := mock.NewMockRepository()
	seedSubject(t, repo, "Alice Adams")
	seedSubject(t, repo, "Bob Brown")
	h := NewSubjectsHandler(repo, &stubEnroller{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subjects", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Count    int `json:"count"`
		Subjects []struct {
			Meta database.SubjectMeta `json:"meta"`
		} `json:"subjects"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
	if body.Subjects[0].Meta.Name != "Alice Adams" {
		t.Errorf("first subject = %q, want name order", body.Subjects[0].Meta.Name)
	}
}

func TestSubjectsList_NameFilter(t *testing.T) {
	repo := mock.NewMockRepository()
	seedSubject(t, repo, "Jan Novák")
	seedSubject(t, repo, "Other Person")
	h := NewSubjectsHandler(repo, &stubEnroller{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subjects?name=jan-novak", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 1 {
		t.Errorf("count = %d, want 1 for normalized name filter", body.Count)
	}
}

func TestSubjectsGet(t *testing.T) {
	repo := mock.NewMockRepository()
	subject := seedSubject(t, repo, "Known")
	if _, err := repo.SaveEncoding(context.Background(), subject.ID, "payload", "front.jpg"); err != nil {
		t.Fatalf("SaveEncoding failed: %v", err)
	}
	h := NewSubjectsHandler(repo, &stubEnroller{}, testLogger())

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/subjects/"+subject.ID, nil),
		map[string]string{"id": subject.ID})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Subject struct {
			ID string `json:"id"`
		} `json:"subject"`
		Encodings []struct {
			ID          int64  `json:"id"`
			SourceLabel string `json:"source_label"`
		} `json:"encodings"`
	}
	decodeBody(t, rec, &body)
	if body.Subject.ID != subject.ID {
		t.Errorf("subject id = %q", body.Subject.ID)
	}
	if len(body.Encodings) != 1 || body.Encodings[0].SourceLabel != "front.jpg" {
		t.Errorf("encodings = %+v", body.Encodings)
	}
}

func TestSubjectsGet_NotFound(t *testing.T) {
	h := NewSubjectsHandler(mock.NewMockRepository(), &stubEnroller{}, testLogger())

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/subjects/missing", nil),
		map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSubjectsEnroll(t *testing.T) {
	repo := mock.NewMockRepository()
	enroller := &stubEnroller{receipt: &pipeline.EnrollmentReceipt{
		Subject:    database.SubjectRecord{ID: "new-id", Meta: database.SubjectMeta{Name: "Enrolled"}},
		EncodingID: 7,
	}}
	h := NewSubjectsHandler(repo, enroller, testLogger())

	req := multipartImageRequest(t, "/api/v1/subjects", testPNG(t), map[string]string{
		"name":   "Enrolled",
		"status": "wanted",
	})
	rec := httptest.NewRecorder()
	h.Enroll(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if enroller.last.Meta.Name != "Enrolled" || enroller.last.Meta.Status != "wanted" {
		t.Errorf("enroll request meta = %+v", enroller.last.Meta)
	}
	if enroller.last.SourceLabel != "query.png" {
		t.Errorf("source label = %q, want upload filename", enroller.last.SourceLabel)
	}
}

func TestSubjectsEnroll_MissingName(t *testing.T) {
	h := NewSubjectsHandler(mock.NewMockRepository(), &stubEnroller{}, testLogger())

	req := multipartImageRequest(t, "/api/v1/subjects", testPNG(t), nil)
	rec := httptest.NewRecorder()
	h.Enroll(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSubjectsEnroll_NoFace(t *testing.T) {
	enroller := &stubEnroller{err: pipeline.ErrNoFaceForEnrollment}
	h := NewSubjectsHandler(mock.NewMockRepository(), enroller, testLogger())

	req := multipartImageRequest(t, "/api/v1/subjects", testPNG(t), map[string]string{"name": "Nobody"})
	rec := httptest.NewRecorder()
	h.Enroll(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestSubjectsAddEncoding(t *testing.T) {
	repo := mock.NewMockRepository()
	subject := seedSubject(t, repo, "Existing")
	enroller := &stubEnroller{receipt: &pipeline.EnrollmentReceipt{
		Subject:    *subject,
		EncodingID: 2,
	}}
	h := NewSubjectsHandler(repo, enroller, testLogger())

	req := requestWithChiParams(
		multipartImageRequest(t, "/api/v1/subjects/"+subject.ID+"/encodings", testPNG(t), nil),
		map[string]string{"id": subject.ID})
	rec := httptest.NewRecorder()
	h.AddEncoding(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if enroller.last.SubjectID != subject.ID {
		t.Errorf("enroll targeted %q, want %s", enroller.last.SubjectID, subject.ID)
	}
}

func TestSubjectsUpdate(t *testing.T) {
	repo := mock.NewMockRepository()
	subject := seedSubject(t, repo, "Before")
	h := NewSubjectsHandler(repo, &stubEnroller{}, testLogger())

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPut, "/api/v1/subjects/"+subject.ID,
			strings.NewReader(`{"name": "After", "notes": "spotted downtown"}`)),
		map[string]string{"id": subject.ID})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got, err := repo.GetSubject(context.Background(), subject.ID)
	if err != nil {
		t.Fatalf("GetSubject failed: %v", err)
	}
	if got.Meta.Name != "After" || got.Meta.Notes != "spotted downtown" {
		t.Errorf("stored meta = %+v", got.Meta)
	}
}

func TestSubjectsDelete(t *testing.T) {
	repo := mock.NewMockRepository()
	subject := seedSubject(t, repo, "Doomed")
	h := NewSubjectsHandler(repo, &stubEnroller{}, testLogger())

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodDelete, "/api/v1/subjects/"+subject.ID, nil),
		map[string]string{"id": subject.ID})
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestSubjectsStats(t *testing.T) {
	repo := mock.NewMockRepository()
	subject := seedSubject(t, repo, "Counted")
	if _, err := repo.SaveEncoding(context.Background(), subject.ID, "x", ""); err != nil {
		t.Fatalf("SaveEncoding failed: %v", err)
	}
	h := NewSubjectsHandler(repo, &stubEnroller{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	var body map[string]int
	decodeBody(t, rec, &body)
	if body["subjects"] != 1 || body["encodings"] != 1 {
		t.Errorf("stats = %v", body)
	}
}
