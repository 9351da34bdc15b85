package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Vishnukv66991/pyshort/internal/entity"
	"github.com/Vishnukv66991/pyshort/pkg/base62"
	"github.com/Vishnukv66991/pyshort/pkg/urlutil"
)

// RecentLimit is the number of links returned by Recent.
const RecentLimit = 10

// Upper bound on expires_in, keeps expires_at inside the range the store can hold.
const maxExpiryDays = 100_000

const maxAutoCodeAttempts = 3

var customCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// Custom codes that would shadow a route.
var reservedCodes = map[string]struct{}{
	"api":     {},
	"docs":    {},
	"health":  {},
	"shorten": {},
	"static":  {},
	"stats":   {},
	"swagger": {},
}

type linkRepository interface {
	Insert(ctx context.Context, longURL string, createdAt time.Time, expiresAt *time.Time) (*entity.Link, error)
	AssignShortCode(ctx context.Context, id int64, shortCode string) (*entity.Link, error)
	RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.Link, error)
	RetrieveByLongURL(ctx context.Context, longURL string) (*entity.Link, error)
	UpdateExpiry(ctx context.Context, id int64, expiresAt time.Time) (*entity.Link, error)
	RetrieveAndRecordHit(ctx context.Context, shortCode string, accessedAt time.Time) (*entity.Link, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.Link, error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ShortenInput holds a shorten request as submitted by the client.
// Empty CustomCode and ExpiresIn mean "not supplied".
type ShortenInput struct {
	LongURL    string
	CustomCode string
	ExpiresIn  string
}

// LinkUseCase implements shortening, redirects and stats over the link store.
type LinkUseCase struct {
	linkRepo linkRepository
	tx       transactor
	now      func() time.Time
}

// New returns a LinkUseCase backed by linkRepo, running writes through tx.
func New(linkRepo linkRepository, tx transactor) *LinkUseCase {
	return &LinkUseCase{
		linkRepo: linkRepo,
		tx:       tx,
		now:      time.Now,
	}
}

// Shorten validates in and returns the link for its URL. Without a custom code an
// existing link for the same URL is reused; otherwise a new link is created and
// given the custom code or the base62 encoding of its id.
func (uc *LinkUseCase) Shorten(ctx context.Context, in ShortenInput) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.Shorten"

	longURL := urlutil.Normalize(in.LongURL)
	if !urlutil.IsValid(longURL) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}

	now := uc.now().UTC()

	expiresAt, err := parseExpiry(in.ExpiresIn, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	customCode := strings.TrimSpace(in.CustomCode)
	if customCode != "" {
		if err := validateCustomCode(customCode); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// A generated code can land on an existing custom code. The failed attempt is
	// rolled back and the next one draws a fresh id.
	for attempt := 1; ; attempt++ {
		link, err := uc.shorten(ctx, longURL, customCode, now, expiresAt)
		if err == nil {
			return link, nil
		}

		if customCode == "" && errors.Is(err, entity.ErrShortCodeTaken) && attempt < maxAutoCodeAttempts {
			continue
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}
}

func (uc *LinkUseCase) shorten(
	ctx context.Context,
	longURL, customCode string,
	now time.Time,
	expiresAt *time.Time,
) (*entity.Link, error) {
	var link *entity.Link

	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if customCode == "" {
			existing, err := uc.linkRepo.RetrieveByLongURL(ctx, longURL)
			switch {
			case err == nil:
				link = existing
				if expiresAt != nil {
					link, err = uc.linkRepo.UpdateExpiry(ctx, existing.ID, *expiresAt)
					if err != nil {
						return fmt.Errorf("failed to update expiry: %w", err)
					}
				}
				return nil
			case !errors.Is(err, entity.ErrLinkNotFound):
				return fmt.Errorf("failed to look up long url: %w", err)
			}
		} else {
			_, err := uc.linkRepo.RetrieveByShortCode(ctx, customCode)
			switch {
			case err == nil:
				return entity.ErrShortCodeTaken
			case !errors.Is(err, entity.ErrLinkNotFound):
				return fmt.Errorf("failed to look up custom code: %w", err)
			}
		}

		created, err := uc.linkRepo.Insert(ctx, longURL, now, expiresAt)
		if err != nil {
			return fmt.Errorf("failed to create link: %w", err)
		}

		code := customCode
		if code == "" {
			code = base62.Encode(uint64(created.ID))
		}

		link, err = uc.linkRepo.AssignShortCode(ctx, created.ID, code)
		if err != nil {
			return fmt.Errorf("failed to assign short code: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return link, nil
}

// Resolve returns the live link for shortCode and records the hit.
// Expired and unknown codes both yield entity.ErrLinkNotFound.
func (uc *LinkUseCase) Resolve(ctx context.Context, shortCode string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.Resolve"

	link, err := uc.linkRepo.RetrieveAndRecordHit(ctx, shortCode, uc.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return link, nil
}

// Expand returns the link for shortCode, expired or not, without touching its stats.
func (uc *LinkUseCase) Expand(ctx context.Context, shortCode string) (*entity.LinkView, error) {
	const op = "usecase.LinkUseCase.Expand"

	link, err := uc.linkRepo.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to expand short code: %w", op, err)
	}

	return &entity.LinkView{
		Link:    *link,
		Expired: link.IsExpired(uc.now()),
	}, nil
}

// Recent returns the RecentLimit most recently created links, newest first.
func (uc *LinkUseCase) Recent(ctx context.Context) ([]*entity.Link, error) {
	const op = "usecase.LinkUseCase.Recent"

	links, err := uc.linkRepo.ListRecent(ctx, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list recent links: %w", op, err)
	}

	return links, nil
}

func parseExpiry(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	days, err := strconv.Atoi(s)
	if err != nil || days <= 0 || days > maxExpiryDays {
		return nil, entity.ErrInvalidExpiry
	}

	expiresAt := now.AddDate(0, 0, days)
	return &expiresAt, nil
}

func validateCustomCode(code string) error {
	if !customCodeRe.MatchString(code) {
		return entity.ErrInvalidCustomCode
	}
	if _, ok := reservedCodes[strings.ToLower(code)]; ok {
		return entity.ErrInvalidCustomCode
	}
	return nil
}
