package tasks

import (
	"fmt"

	"github.com/jihwannnn/likebox-2024-test/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or server logs for display.
type ProgressUpdate struct {
	Phase   Phase              // Operation phase
	Kind    models.ContentKind // Content kind the update belongs to
	Step    int                // Current step number within the operation
	Total   int                // Total steps in the operation
	Message string             // Human-readable message for display
	Data    any                // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	LoadIndex Phase = iota
	RefreshToken
	FetchLibrary
	StoreContent
	WriteIndex
	Reconciled
	ExportKind
)

func (p Phase) String() string {
	switch p {
	case LoadIndex:
		return "load_index"
	case RefreshToken:
		return "refresh_token"
	case FetchLibrary:
		return "fetch_library"
	case StoreContent:
		return "store_content"
	case WriteIndex:
		return "write_index"
	case Reconciled:
		return "reconciled"
	case ExportKind:
		return "export_kind"
	default:
		return ""
	}
}

// reconcileSteps is the number of progress steps one reconcile reports.
const reconcileSteps = 5

func loadIndexUpdate(kind models.ContentKind, uid string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadIndex,
		Kind:    kind,
		Step:    1,
		Total:   reconcileSteps,
		Message: fmt.Sprintf("Loading library index for %s...", uid),
	}
}

func refreshTokenUpdate(kind models.ContentKind, p models.Platform) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RefreshToken,
		Kind:    kind,
		Step:    2,
		Total:   reconcileSteps,
		Message: fmt.Sprintf("Checking %s access token...", p),
	}
}

func fetchLibraryUpdate(kind models.ContentKind, p models.Platform) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Kind:    kind,
		Step:    3,
		Total:   reconcileSteps,
		Message: fmt.Sprintf("Fetching %s from %s...", kind, p),
	}
}

func storeContentUpdate(kind models.ContentKind, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreContent,
		Kind:    kind,
		Step:    4,
		Total:   reconcileSteps,
		Message: fmt.Sprintf("Storing %d %s entries...", count, kind),
	}
}

func writeIndexUpdate(kind models.ContentKind) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteIndex,
		Kind:    kind,
		Step:    5,
		Total:   reconcileSteps,
		Message: "Updating library index...",
	}
}

func reconciledUpdate(res *Result) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconciled,
		Kind:    res.Kind,
		Step:    reconcileSteps,
		Total:   reconcileSteps,
		Message: fmt.Sprintf("✓ %s: +%d -%d", res.Kind, res.Added, res.Removed),
		Data:    res,
	}
}

func exportCompletedUpdate(step, total int, kind models.ContentKind, items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportKind,
		Kind:    kind,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d items)", step, total, kind, items),
	}
}

func exportFailedUpdate(step, total int, kind models.ContentKind, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportKind,
		Kind:    kind,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, kind, err),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
