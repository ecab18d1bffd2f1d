package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ceros-embed/ceros-embed/internal/cma"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
)

// InstallationAPI reads and writes the app installation record.
type InstallationAPI interface {
	GetAppInstallation(ctx context.Context, appDefinitionID string) (cma.AppInstallation, error)
	PutAppInstallation(ctx context.Context, appDefinitionID string, parameters any) (cma.AppInstallation, error)
}

// Installation stores the installation parameters on the app installation.
type Installation struct {
	api   InstallationAPI
	appID string
}

func NewInstallation(api InstallationAPI, appID string) (*Installation, error) {
	if api == nil {
		return nil, errors.New("installation api is required")
	}
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, errors.New("app id is required")
	}
	return &Installation{api: api, appID: appID}, nil
}

// LoadParameters returns empty parameters when the app is not installed yet.
func (i *Installation) LoadParameters(ctx context.Context) (fieldmap.Parameters, error) {
	inst, err := i.api.GetAppInstallation(ctx, i.appID)
	if err != nil {
		if cma.IsNotFound(err) {
			return fieldmap.Parameters{}, nil
		}
		return fieldmap.Parameters{}, err
	}
	var p fieldmap.Parameters
	if len(inst.Parameters) == 0 || string(inst.Parameters) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(inst.Parameters, &p); err != nil {
		return fieldmap.Parameters{}, fmt.Errorf("decode installation parameters: %w", err)
	}
	return p.Normalize(), nil
}

func (i *Installation) SaveParameters(ctx context.Context, p fieldmap.Parameters) error {
	_, err := i.api.PutAppInstallation(ctx, i.appID, p.Normalize())
	return err
}
