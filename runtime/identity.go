package runtime

import (
	"chat-room/contract"
	"chat-room/domain"
	"chat-room/errors"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strings"
)

// IdentityResolver turns the optional token presented at connect time into a participant.
type IdentityResolver struct {
	log   *slog.Logger
	store contract.IMessageStore
	names *domain.NameGenerator
}

func NewIdentityResolver(log *slog.Logger, store contract.IMessageStore, names *domain.NameGenerator) *IdentityResolver {
	return &IdentityResolver{log: log, store: store, names: names}
}

// Resolve creates a new participant with a generated name when candidateID is blank.
// A token that matches no participant is rejected, never silently replaced.
func (r *IdentityResolver) Resolve(ctx context.Context, candidateID string) (domain.Participant, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		participant, err := r.store.CreateParticipant(ctx, r.names.Generate())
		if err != nil {
			return domain.Participant{}, err
		}
		r.log.Info("New participant created", "participant_id", participant.ID, "name", participant.DisplayName)
		return participant, nil
	}

	participant, err := r.store.FindParticipant(ctx, candidateID)
	switch {
	case err == nil:
		return participant, nil
	case goerrors.Is(err, errors.ErrParticipantNotFound):
		return domain.Participant{}, fmt.Errorf("%w: %s", errors.ErrIdentityRejected, candidateID)
	default:
		return domain.Participant{}, err
	}
}
