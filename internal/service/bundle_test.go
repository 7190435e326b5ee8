package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/bundle"
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/promptlib"
)

const catalogue = `
workspaces:
  - slug: research
    name: Research
  - slug: ops
templates:
  - name: Concise
    content: Answer briefly.
    default: true
  - name: Verbose
    content: Explain in detail.
    enabled: false
libraries:
  - name: Blog writer
    template: "Write about {{topic}} in a {{tone}} tone."
    workspaces: [research]
    questions:
      - variable: topic
        label: Topic
        type: select
        options: [blog, news]
      - variable: tone
        label: Tone
        required: false
        show_if: {variable: topic, equals: blog}
  - name: Incident summary
    template: "Summarize {{incident}} for {{audience}}."
    questions:
      - variable: incident
        label: Incident
        type: textarea
`

func decodeCatalogue(t *testing.T, doc string) *bundle.Bundle {
	t.Helper()
	b, err := bundle.Decode([]byte(doc), bundle.FormatYAML)
	if err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	return b
}

func TestBundleImport(t *testing.T) {
	db := testDB(t)
	svc := NewBundleService(db, nil)
	ctx := context.Background()

	summary, err := svc.Import(ctx, decodeCatalogue(t, catalogue), uuid.Nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := ImportCounts{Created: 2}
	if summary.Workspaces != want || summary.Templates != want || summary.Libraries != want {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(summary.Warnings) != 1 {
		t.Errorf("expected one warning for {{audience}}, got %v", summary.Warnings)
	}

	libs := NewLibraryService(db, nil)
	research, _ := libs.ListAccessible(ctx, "research")
	ops, _ := libs.ListAccessible(ctx, "ops")
	if len(research) != 2 || len(ops) != 1 {
		t.Errorf("expected 2 libraries for research and 1 for ops, got %d and %d", len(research), len(ops))
	}

	res, err := libs.ValidateAndRender(ctx, "research", research[0].ID, promptlib.Answers{"topic": "blog", "tone": "dry"})
	if err != nil || !res.OK || res.Prompt != "Write about blog in a dry tone." {
		t.Errorf("unexpected render result %+v (err %v)", res, err)
	}

	active, _ := NewTemplateService(db).ResolveActive(ctx, "ops")
	if active == nil || active.Name != "Concise" {
		t.Errorf("expected Concise as default, got %+v", active)
	}
	if n := countAudit(t, db, "import_bundle"); n != 1 {
		t.Errorf("expected 1 import audit entry, got %d", n)
	}
}

func TestBundleImport_Upserts(t *testing.T) {
	db := testDB(t)
	svc := NewBundleService(db, nil)
	ctx := context.Background()

	if _, err := svc.Import(ctx, decodeCatalogue(t, catalogue), uuid.Nil); err != nil {
		t.Fatalf("first Import: %v", err)
	}

	update := `
templates:
  - name: Verbose
    content: Explain everything.
    default: true
libraries:
  - name: Blog writer
    template: "Blog about {{topic}}"
    questions:
      - variable: topic
        label: Topic
`
	summary, err := svc.Import(ctx, decodeCatalogue(t, update), uuid.Nil)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if summary.Templates != (ImportCounts{Updated: 1}) || summary.Libraries != (ImportCounts{Updated: 1}) {
		t.Errorf("unexpected summary: %+v", summary)
	}

	var defaults []models.PromptTemplate
	db.Where("is_default = ?", true).Find(&defaults)
	if len(defaults) != 1 || defaults[0].Name != "Verbose" || !defaults[0].Enabled {
		t.Errorf("expected Verbose to become the enabled default, got %+v", defaults)
	}

	var lib models.PromptLibrary
	db.Preload("Questions").Preload("Assignments").Where("name = ?", "Blog writer").First(&lib)
	if len(lib.Questions) != 1 || len(lib.Assignments) != 0 {
		t.Errorf("expected questions and assignments replaced, got %d questions and %d assignments", len(lib.Questions), len(lib.Assignments))
	}
}

func TestBundleImport_AllOrNothing(t *testing.T) {
	db := testDB(t)
	svc := NewBundleService(db, nil)

	bad := `
workspaces:
  - slug: research
libraries:
  - name: Scoped
    template: "{{x}}"
    workspaces: [research, nowhere]
`
	_, err := svc.Import(context.Background(), decodeCatalogue(t, bad), uuid.Nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	var n int64
	db.Model(&models.Workspace{}).Count(&n)
	if n != 0 {
		t.Errorf("expected workspace creation rolled back, got %d", n)
	}
}

func TestBundleExport_RoundTrip(t *testing.T) {
	db := testDB(t)
	svc := NewBundleService(db, nil)
	ctx := context.Background()

	if _, err := svc.Import(ctx, decodeCatalogue(t, catalogue), uuid.Nil); err != nil {
		t.Fatalf("Import: %v", err)
	}
	exported, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(exported.Workspaces) != 2 || exported.Workspaces[0].Slug != "ops" {
		t.Errorf("unexpected workspaces: %+v", exported.Workspaces)
	}
	if diff := cmp.Diff([]string{"research"}, exported.Libraries[0].Workspaces); diff != "" {
		t.Errorf("assignment slugs mismatch (-want +got):\n%s", diff)
	}

	// Importing the export into a fresh database reproduces it
	data, err := bundle.Encode(exported, bundle.FormatTOML)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := bundle.Decode(data, bundle.FormatTOML)
	if err != nil {
		t.Fatalf("Decode: %v\n%s", err, data)
	}
	fresh := NewBundleService(testDB(t), nil)
	if _, err := fresh.Import(ctx, decoded, uuid.Nil); err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	again, err := fresh.Export(ctx)
	if err != nil {
		t.Fatalf("re-Export: %v", err)
	}
	if diff := cmp.Diff(exported, again); diff != "" {
		t.Errorf("export changed through round trip (-want +got):\n%s", diff)
	}
}
