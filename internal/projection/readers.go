package projection

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/snackfleet-backend/internal/data/repos"
	"github.com/yungbote/snackfleet-backend/internal/domain"
)

type machineRepoReader struct {
	repo repos.MachineRepo
}

// NewMachineReader adapts the snapshot repo to the rebuild-path reader.
func NewMachineReader(repo repos.MachineRepo) MachineReader {
	return &machineRepoReader{repo: repo}
}

func (r *machineRepoReader) CurrentState(ctx context.Context, id uuid.UUID) (*domain.Machine, error) {
	return r.repo.LoadAggregate(ctx, nil, id)
}

type snackRepoReader struct {
	repo repos.SnackRepo
}

func NewSnackReader(repo repos.SnackRepo) SnackReader {
	return &snackRepoReader{repo: repo}
}

func (r *snackRepoReader) CurrentState(ctx context.Context, id uuid.UUID) (*domain.Snack, error) {
	return r.repo.LoadAggregate(ctx, nil, id)
}

// NewSnackLookup feeds the info cache from the authoritative snack store.
func NewSnackLookup(reader SnackReader) SnackLookup {
	return func(ctx context.Context, id uuid.UUID) (SnackInfo, error) {
		s, err := reader.CurrentState(ctx, id)
		if err != nil {
			return SnackInfo{}, err
		}
		return SnackInfo{Name: s.Name, PictureURL: s.PictureURL}, nil
	}
}
