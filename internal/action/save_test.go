package action

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"formhub-backend/internal/model"
)

// fakeWriter records saved submissions and assigns ids like the SQL store.
type fakeWriter struct {
	saved []*model.Submission
	err   error
}

func (w *fakeWriter) SaveSubmission(ctx context.Context, sub *model.Submission) error {
	if w.err != nil {
		return w.err
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	w.saved = append(w.saved, sub)
	return nil
}

func TestSaveSubmissionPersistsAndMarks(t *testing.T) {
	w := &fakeWriter{}
	unit := NewSaveSubmission(w)
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{FormID: "form-1", Data: map[string]any{"name": "Ada"}},
	}

	err := unit.Resolve(context.Background(), &model.Action{ID: "a", Name: "save"},
		model.HandlerBefore, model.MethodCreate, ectx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(w.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(w.saved))
	}
	if !ectx.Persisted {
		t.Error("expected Persisted to be set")
	}
	if ectx.Result["submission"] != ectx.Submission.ID {
		t.Error("expected the saved id on the result side channel")
	}
}

func TestSaveSubmissionOnlyBeforeCreateUpdate(t *testing.T) {
	w := &fakeWriter{}
	unit := NewSaveSubmission(w)
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{FormID: "form-1"},
	}
	a := &model.Action{ID: "a", Name: "save"}

	cases := []struct{ handler, method string }{
		{model.HandlerAfter, model.MethodCreate},
		{model.HandlerBefore, model.MethodRead},
		{model.HandlerBefore, model.MethodDelete},
		{model.HandlerBefore, model.MethodIndex},
	}
	for _, c := range cases {
		if err := unit.Resolve(context.Background(), a, c.handler, c.method, ectx); err != nil {
			t.Fatalf("%s/%s: %v", c.handler, c.method, err)
		}
	}
	if len(w.saved) != 0 {
		t.Errorf("expected no saves outside before create/update, got %d", len(w.saved))
	}
}

func TestSaveSubmissionWithoutSubmissionIsNoop(t *testing.T) {
	w := &fakeWriter{}
	unit := NewSaveSubmission(w)
	ectx := &ExecutionContext{Form: &model.Form{ID: "form-1"}}

	err := unit.Resolve(context.Background(), &model.Action{ID: "a", Name: "save"},
		model.HandlerBefore, model.MethodUpdate, ectx)
	if err != nil {
		t.Fatalf("form-scoped requests must not trip the save unit: %v", err)
	}
	if len(w.saved) != 0 || ectx.Persisted {
		t.Errorf("expected nothing persisted, got %d saves (persisted=%v)", len(w.saved), ectx.Persisted)
	}
}

func TestSaveSubmissionToResourceCopiesMappedFields(t *testing.T) {
	w := &fakeWriter{}
	unit := NewSaveSubmission(w)
	ectx := &ExecutionContext{
		Form: &model.Form{ID: "form-1"},
		Submission: &model.Submission{
			FormID: "form-1",
			Owner:  "u1",
			Data:   map[string]any{"email": "ada@example.com", "name": "Ada", "internal": "x"},
		},
	}
	a := &model.Action{ID: "a", Name: "save", Settings: map[string]any{
		"resource": "form-users",
		"fields":   map[string]any{"login": "email", "fullName": "name"},
		"property": "userId",
	}}

	err := unit.Resolve(context.Background(), a, model.HandlerBefore, model.MethodCreate, ectx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(w.saved) != 2 {
		t.Fatalf("expected resource copy plus the submission, got %d saves", len(w.saved))
	}

	resource := w.saved[0]
	if resource.FormID != "form-users" || resource.Owner != "u1" {
		t.Errorf("unexpected resource submission: %+v", resource)
	}
	if resource.Data["login"] != "ada@example.com" || resource.Data["fullName"] != "Ada" {
		t.Errorf("unexpected mapped data: %v", resource.Data)
	}
	if _, leaked := resource.Data["internal"]; leaked {
		t.Error("unmapped fields must not be copied")
	}
	if ectx.Submission.Data["userId"] != resource.ID {
		t.Error("expected the resource id linked back into the original data")
	}
}

func TestSaveSubmissionWriterFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("disk full")}
	unit := NewSaveSubmission(w)
	ectx := &ExecutionContext{
		Form:       &model.Form{ID: "form-1"},
		Submission: &model.Submission{FormID: "form-1"},
	}

	err := unit.Resolve(context.Background(), &model.Action{ID: "a", Name: "save"},
		model.HandlerBefore, model.MethodCreate, ectx)
	if err == nil {
		t.Fatal("expected an error")
	}
	if ectx.Persisted {
		t.Error("Persisted must stay false on failure")
	}
}
