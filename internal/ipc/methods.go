package ipc

import (
	"context"
	"fmt"
	"strings"

	"launcher/internal/apps"
	"launcher/internal/sources"
	"launcher/pkg/appspec"
)

// Method names.
const (
	MethodSourcesList      = "sources.list"
	MethodSourcesAdd       = "sources.add"
	MethodSourcesRemove    = "sources.remove"
	MethodSourcesSync      = "sources.sync"
	MethodAppsDownloadable = "apps.downloadable"
	MethodAppsLocal        = "apps.local"
	MethodAppsInstall      = "apps.install"
	MethodAppsRemove       = "apps.remove"
	MethodAppsInstallLocal = "apps.installLocal"
	MethodAppsRemoveLocal  = "apps.removeLocal"
)

// EventSink receives events produced while serving requests.
type EventSink interface {
	Broadcast(event string, data any)
}

type (
	Empty struct{}

	AddSourceParams struct {
		URL string `json:"url"`
	}

	RemoveSourceParams struct {
		Name string `json:"name"`
	}

	AppParams struct {
		Source  string `json:"source"`
		Name    string `json:"name"`
		Version string `json:"version,omitempty"`
	}

	InstallLocalParams struct {
		ArchivePath string `json:"archivePath"`
		Overwrite   bool   `json:"overwrite"`
	}

	RemoveLocalParams struct {
		Name string `json:"name"`
	}

	SourcesResult struct {
		Sources []appspec.Source `json:"sources"`
	}

	SyncResult struct {
		sources.SyncReport
		AppsWithErrors []apps.AppError `json:"appsWithErrors"`
	}

	LocalAppsResult struct {
		Apps           []*apps.LocalApp `json:"apps"`
		AppsWithErrors []apps.AppError  `json:"appsWithErrors"`
	}

	SyncProgress struct {
		Source string            `json:"source"`
		State  sources.SyncState `json:"state"`
		Error  string            `json:"error,omitempty"`
	}

	InstallPhase struct {
		Source string     `json:"source"`
		Name   string     `json:"name"`
		Phase  apps.Phase `json:"phase"`
	}
)

// InstallOutcome is the wire form of apps.InstallResult. App holds an
// apps.App when encoding and the decoded JSON object on the client side.
type InstallOutcome struct {
	Status  string             `json:"status"`
	App     any                `json:"app,omitempty"`
	Name    string             `json:"name,omitempty"`
	Path    string             `json:"path,omitempty"`
	Reason  apps.FailureReason `json:"reason,omitempty"`
	Message string             `json:"message,omitempty"`
}

// Install outcome statuses.
const (
	StatusSucceeded = "succeeded"
	StatusExists    = "exists"
	StatusFailed    = "failed"
)

func outcomeOf(result apps.InstallResult) InstallOutcome {
	switch r := result.(type) {
	case apps.InstallSucceeded:
		return InstallOutcome{Status: StatusSucceeded, App: r.App}
	case apps.InstallAppExists:
		return InstallOutcome{Status: StatusExists, Name: r.Name, Path: r.Path}
	case apps.InstallFailed:
		return InstallOutcome{Status: StatusFailed, Reason: r.Reason, Message: r.Message, Path: r.Path}
	default:
		panic(fmt.Sprintf("unhandled install result %T", result))
	}
}

// RegisterMethods exposes the app manager on d. events may be nil.
func RegisterMethods(d *Dispatcher, svc *apps.Service, events EventSink) {
	broadcast := func(event string, data any) {
		if events != nil {
			events.Broadcast(event, data)
		}
	}

	Handle(d, MethodSourcesList, func(_ context.Context, _ Empty) (SourcesResult, error) {
		all, err := svc.Registry.All()
		return SourcesResult{Sources: all}, err
	})

	Handle(d, MethodSourcesAdd, func(ctx context.Context, p AddSourceParams) (apps.AddSourceResult, error) {
		if strings.TrimSpace(p.URL) == "" {
			return apps.AddSourceResult{}, invalidParams("url is required")
		}
		return svc.AddSource(ctx, p.URL)
	})

	Handle(d, MethodSourcesRemove, func(_ context.Context, p RemoveSourceParams) (Empty, error) {
		if p.Name == "" {
			return Empty{}, invalidParams("name is required")
		}
		return Empty{}, svc.RemoveSource(p.Name)
	})

	Handle(d, MethodSourcesSync, func(ctx context.Context, _ Empty) (SyncResult, error) {
		syncer := *svc.Syncer
		syncer.OnProgress = func(src appspec.Source, state sources.SyncState, err error) {
			progress := SyncProgress{Source: src.Name, State: state}
			if err != nil {
				progress.Error = err.Error()
			}
			broadcast(EventSyncProgress, progress)
		}
		scoped := *svc
		scoped.Syncer = &syncer
		report, appErrs, err := scoped.UpdateAll(ctx)
		return SyncResult{SyncReport: report, AppsWithErrors: appErrs}, err
	})

	Handle(d, MethodAppsDownloadable, func(ctx context.Context, _ Empty) (apps.Inventory, error) {
		return svc.DownloadableApps(ctx)
	})

	Handle(d, MethodAppsLocal, func(_ context.Context, _ Empty) (LocalAppsResult, error) {
		local, appErrs, err := svc.LocalApps(true)
		if appErrs == nil {
			appErrs = []apps.AppError{}
		}
		return LocalAppsResult{Apps: local, AppsWithErrors: appErrs}, err
	})

	Handle(d, MethodAppsInstall, func(ctx context.Context, p AppParams) (InstallOutcome, error) {
		if p.Source == "" || p.Name == "" {
			return InstallOutcome{}, invalidParams("source and name are required")
		}
		spec := apps.AppSpec{Source: p.Source, Name: p.Name}
		result, err := svc.Install(ctx, spec, apps.InstallOptions{
			Version: p.Version,
			OnPhase: func(phase apps.Phase) {
				broadcast(EventInstallPhase, InstallPhase{Source: p.Source, Name: p.Name, Phase: phase})
			},
		})
		if err != nil {
			return InstallOutcome{}, err
		}
		return outcomeOf(result), nil
	})

	Handle(d, MethodAppsRemove, func(ctx context.Context, p AppParams) (Empty, error) {
		if p.Source == "" || p.Name == "" {
			return Empty{}, invalidParams("source and name are required")
		}
		return Empty{}, svc.Remove(ctx, apps.AppSpec{Source: p.Source, Name: p.Name})
	})

	Handle(d, MethodAppsInstallLocal, func(ctx context.Context, p InstallLocalParams) (InstallOutcome, error) {
		if p.ArchivePath == "" {
			return InstallOutcome{}, invalidParams("archivePath is required")
		}
		result, err := svc.InstallLocal(ctx, p.ArchivePath, apps.InstallLocalOptions{Overwrite: p.Overwrite})
		if err != nil {
			return InstallOutcome{}, err
		}
		return outcomeOf(result), nil
	})

	Handle(d, MethodAppsRemoveLocal, func(_ context.Context, p RemoveLocalParams) (Empty, error) {
		if p.Name == "" {
			return Empty{}, invalidParams("name is required")
		}
		return Empty{}, svc.RemoveLocal(p.Name)
	})
}
