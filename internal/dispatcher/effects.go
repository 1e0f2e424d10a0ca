package dispatcher

import (
	"context"

	"github.com/spacesedan/myriadflow/internal/models"
)

type RewardService interface {
	CreditDefaultCurrency(ctx context.Context, userID string) error
	GrantInitialTip(ctx context.Context, userID string) error
	PayoutReward(ctx context.Context, accountID string) error
	ClaimPendingTips(ctx context.Context, subjectID string) error
}

type TagRegistrar interface {
	Register(ctx context.Context, ids []string) error
}

type ContentPublisher interface {
	Publish(ctx context.Context, post models.Post) error
}

// EffectDeps holds the collaborators of the default cascades. A nil
// collaborator leaves its effects out.
type EffectDeps struct {
	Rewards   RewardService
	Tags      TagRegistrar
	Publisher ContentPublisher
}

func DefaultCascades(deps EffectDeps) Cascades {
	c := Cascades{}

	if deps.Rewards != nil {
		rewards := deps.Rewards
		c[Key{KindUser, OpCreate}] = []Effect{
			{Name: "creditDefaultCurrency", Run: func(ctx context.Context, ev Event) error {
				return rewards.CreditDefaultCurrency(ctx, ev.SubjectID)
			}},
			{Name: "grantInitialTip", Run: func(ctx context.Context, ev Event) error {
				return rewards.GrantInitialTip(ctx, ev.SubjectID)
			}},
		}
		c[Key{KindTransaction, OpCreate}] = []Effect{
			{Name: "payoutReward", Run: func(ctx context.Context, ev Event) error {
				if ev.Transaction == nil {
					return nil
				}
				return rewards.PayoutReward(ctx, ev.Transaction.From)
			}},
		}
		c[Key{KindPeople, OpVerify}] = []Effect{
			{Name: "claimPendingTips", Run: func(ctx context.Context, ev Event) error {
				return rewards.ClaimPendingTips(ctx, ev.SubjectID)
			}},
		}
	}

	var postEffects []Effect
	if deps.Tags != nil {
		registrar := deps.Tags
		postEffects = append(postEffects, Effect{Name: "registerTags", Run: func(ctx context.Context, ev Event) error {
			if ev.Post == nil || len(ev.Post.Tags) == 0 {
				return nil
			}
			return registrar.Register(ctx, ev.Post.Tags)
		}})
	}
	if deps.Publisher != nil {
		publisher := deps.Publisher
		postEffects = append(postEffects, Effect{Name: "publishContent", Run: func(ctx context.Context, ev Event) error {
			if ev.Post == nil {
				return nil
			}
			return publisher.Publish(ctx, *ev.Post)
		}})
	}
	if len(postEffects) > 0 {
		c[Key{KindPost, OpCreate}] = postEffects
	}

	return c
}
