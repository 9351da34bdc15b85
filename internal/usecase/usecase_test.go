package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Vishnukv66991/pyshort/internal/entity"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockLinkRepository struct {
	mock.Mock
}

func (r *MockLinkRepository) Insert(ctx context.Context, longURL string, createdAt time.Time, expiresAt *time.Time) (*entity.Link, error) {
	args := r.Called(ctx, longURL, createdAt, expiresAt)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (r *MockLinkRepository) AssignShortCode(ctx context.Context, id int64, shortCode string) (*entity.Link, error) {
	args := r.Called(ctx, id, shortCode)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (r *MockLinkRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.Link, error) {
	args := r.Called(ctx, shortCode)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (r *MockLinkRepository) RetrieveByLongURL(ctx context.Context, longURL string) (*entity.Link, error) {
	args := r.Called(ctx, longURL)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (r *MockLinkRepository) UpdateExpiry(ctx context.Context, id int64, expiresAt time.Time) (*entity.Link, error) {
	args := r.Called(ctx, id, expiresAt)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (r *MockLinkRepository) RetrieveAndRecordHit(ctx context.Context, shortCode string, accessedAt time.Time) (*entity.Link, error) {
	args := r.Called(ctx, shortCode, accessedAt)
	link, _ := args.Get(0).(*entity.Link)
	return link, args.Error(1)
}

func (r *MockLinkRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Link, error) {
	args := r.Called(ctx, limit)
	links, _ := args.Get(0).([]*entity.Link)
	return links, args.Error(1)
}

// passthroughTx runs fn directly and reports how the transaction ended.
type passthroughTx struct {
	committed  bool
	rolledBack bool
}

func (tx *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		tx.rolledBack = true
		return err
	}
	tx.committed = true
	return nil
}

type LinkUseCaseTestSuite struct {
	suite.Suite
	errUnknown   error
	now          time.Time
	linkRepoMock *MockLinkRepository
	tx           *passthroughTx
	uc           *LinkUseCase
}

func (suite *LinkUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *LinkUseCaseTestSuite) SetupSubTest() {
	suite.linkRepoMock = new(MockLinkRepository)
	suite.tx = new(passthroughTx)
	suite.uc = New(suite.linkRepoMock, suite.tx)
	suite.uc.now = func() time.Time { return suite.now }
}

func (suite *LinkUseCaseTestSuite) TearDownSubTest() {
	suite.linkRepoMock.AssertExpectations(suite.T())
}

func (suite *LinkUseCaseTestSuite) in(days int) *time.Time {
	t := suite.now.AddDate(0, 0, days)
	return &t
}

func (suite *LinkUseCaseTestSuite) TestShorten() {
	ctx := context.Background()

	suite.Run("invalid url", func() {
		for _, longURL := range []string{"", "   ", "ftp://example.com", "http://", "example.com/%zz"} {
			link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: longURL})

			suite.ErrorIs(err, entity.ErrInvalidURL, longURL)
			suite.Nil(link)
		}
	})

	suite.Run("invalid expiry", func() {
		for _, expiresIn := range []string{"-1", "0", "abc", "1.5", "100001"} {
			link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com", ExpiresIn: expiresIn})

			suite.ErrorIs(err, entity.ErrInvalidExpiry, expiresIn)
			suite.Nil(link)
		}
		suite.False(suite.tx.committed)
	})

	suite.Run("invalid custom code", func() {
		for _, code := range []string{"ab", "has space", "slash/", "éè-code", "stats", "API", "abcdefghijklmnopqrstuvwxyz0123456"} {
			link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com", CustomCode: code})

			suite.ErrorIs(err, entity.ErrInvalidCustomCode, code)
			suite.Nil(link)
		}
	})

	suite.Run("custom code taken", func() {
		suite.linkRepoMock.
			On("RetrieveByShortCode", ctx, "mine").
			Once().
			Return(&entity.Link{ID: 1, ShortCode: "mine", LongURL: "https://other.com"}, nil)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com", CustomCode: "mine"})

		suite.ErrorIs(err, entity.ErrShortCodeTaken)
		suite.Equal(entity.KindCodeTaken, entity.ErrorKind(err))
		suite.Nil(link)
		suite.True(suite.tx.rolledBack)
		suite.linkRepoMock.AssertNotCalled(suite.T(), "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("custom code lost to concurrent writer", func() {
		suite.linkRepoMock.
			On("RetrieveByShortCode", ctx, "mine").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Insert", ctx, "https://example.com", suite.now, (*time.Time)(nil)).
			Once().
			Return(&entity.Link{ID: 7, LongURL: "https://example.com", CreatedAt: suite.now}, nil)
		suite.linkRepoMock.
			On("AssignShortCode", ctx, int64(7), "mine").
			Once().
			Return(nil, entity.ErrShortCodeTaken)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com", CustomCode: "mine"})

		suite.ErrorIs(err, entity.ErrShortCodeTaken)
		suite.Nil(link)
		suite.True(suite.tx.rolledBack)
	})

	suite.Run("custom code success", func() {
		suite.linkRepoMock.
			On("RetrieveByShortCode", ctx, "my-link_1").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Insert", ctx, "https://example.com", suite.now, (*time.Time)(nil)).
			Once().
			Return(&entity.Link{ID: 3, LongURL: "https://example.com", CreatedAt: suite.now}, nil)
		suite.linkRepoMock.
			On("AssignShortCode", ctx, int64(3), "my-link_1").
			Once().
			Return(&entity.Link{ID: 3, ShortCode: "my-link_1", LongURL: "https://example.com", CreatedAt: suite.now}, nil)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com", CustomCode: "  my-link_1  "})

		suite.NoError(err)
		suite.Require().NotNil(link)
		suite.Equal("my-link_1", link.ShortCode)
		suite.True(suite.tx.committed)
		suite.linkRepoMock.AssertNotCalled(suite.T(), "RetrieveByLongURL", mock.Anything, mock.Anything)
	})

	suite.Run("new link gets base62 of id", func() {
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://example.com/page").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Insert", ctx, "https://example.com/page", suite.now, (*time.Time)(nil)).
			Once().
			Return(&entity.Link{ID: 125, LongURL: "https://example.com/page", CreatedAt: suite.now}, nil)
		suite.linkRepoMock.
			On("AssignShortCode", ctx, int64(125), "21").
			Once().
			Return(&entity.Link{ID: 125, ShortCode: "21", LongURL: "https://example.com/page", CreatedAt: suite.now}, nil)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "example.com/page"})

		suite.NoError(err)
		suite.Require().NotNil(link)
		suite.Equal("21", link.ShortCode)
		suite.Equal("https://example.com/page", link.LongURL)
	})

	suite.Run("generated code collides with custom code", func() {
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://example.com").
			Twice().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Insert", ctx, "https://example.com", suite.now, (*time.Time)(nil)).
			Once().
			Return(&entity.Link{ID: 125, LongURL: "https://example.com", CreatedAt: suite.now}, nil)
		suite.linkRepoMock.
			On("AssignShortCode", ctx, int64(125), "21").
			Once().
			Return(nil, entity.ErrShortCodeTaken)
		suite.linkRepoMock.
			On("Insert", ctx, "https://example.com", suite.now, (*time.Time)(nil)).
			Once().
			Return(&entity.Link{ID: 126, LongURL: "https://example.com", CreatedAt: suite.now}, nil)
		suite.linkRepoMock.
			On("AssignShortCode", ctx, int64(126), "22").
			Once().
			Return(&entity.Link{ID: 126, ShortCode: "22", LongURL: "https://example.com", CreatedAt: suite.now}, nil)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com"})

		suite.NoError(err)
		suite.Require().NotNil(link)
		suite.Equal("22", link.ShortCode)
		suite.True(suite.tx.committed)
	})

	suite.Run("generated code keeps colliding", func() {
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://example.com").
			Times(maxAutoCodeAttempts).
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Insert", ctx, "https://example.com", suite.now, (*time.Time)(nil)).
			Times(maxAutoCodeAttempts).
			Return(&entity.Link{ID: 125, LongURL: "https://example.com", CreatedAt: suite.now}, nil)
		suite.linkRepoMock.
			On("AssignShortCode", ctx, int64(125), "21").
			Times(maxAutoCodeAttempts).
			Return(nil, entity.ErrShortCodeTaken)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com"})

		suite.ErrorIs(err, entity.ErrShortCodeTaken)
		suite.Nil(link)
		suite.True(suite.tx.rolledBack)
	})

	suite.Run("ip and port without scheme", func() {
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://127.0.0.1:5000").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Insert", ctx, "https://127.0.0.1:5000", suite.now, (*time.Time)(nil)).
			Once().
			Return(&entity.Link{ID: 2, LongURL: "https://127.0.0.1:5000", CreatedAt: suite.now}, nil)
		suite.linkRepoMock.
			On("AssignShortCode", ctx, int64(2), "2").
			Once().
			Return(&entity.Link{ID: 2, ShortCode: "2", LongURL: "https://127.0.0.1:5000", CreatedAt: suite.now}, nil)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "127.0.0.1:5000"})

		suite.NoError(err)
		suite.Require().NotNil(link)
		suite.Equal("https://127.0.0.1:5000", link.LongURL)
	})

	suite.Run("new link with expiry", func() {
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://example.com").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Insert", ctx, "https://example.com", suite.now, suite.in(7)).
			Once().
			Return(&entity.Link{ID: 1, LongURL: "https://example.com", CreatedAt: suite.now, ExpiresAt: suite.in(7)}, nil)
		suite.linkRepoMock.
			On("AssignShortCode", ctx, int64(1), "1").
			Once().
			Return(&entity.Link{ID: 1, ShortCode: "1", LongURL: "https://example.com", CreatedAt: suite.now, ExpiresAt: suite.in(7)}, nil)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com", ExpiresIn: " 7 "})

		suite.NoError(err)
		suite.Require().NotNil(link)
		suite.Require().NotNil(link.ExpiresAt)
		suite.True(suite.now.Add(7 * 24 * time.Hour).Equal(*link.ExpiresAt))
	})

	suite.Run("dedup reuses existing link", func() {
		existing := &entity.Link{ID: 4, ShortCode: "4", LongURL: "https://example.com", CreatedAt: suite.now}
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://example.com").
			Once().
			Return(existing, nil)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com"})

		suite.NoError(err)
		suite.Equal(existing, link)
		suite.linkRepoMock.AssertNotCalled(suite.T(), "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		suite.linkRepoMock.AssertNotCalled(suite.T(), "UpdateExpiry", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("dedup replaces expiry", func() {
		existing := &entity.Link{ID: 4, ShortCode: "4", LongURL: "https://example.com", CreatedAt: suite.now}
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://example.com").
			Once().
			Return(existing, nil)
		suite.linkRepoMock.
			On("UpdateExpiry", ctx, int64(4), *suite.in(3)).
			Once().
			Return(&entity.Link{ID: 4, ShortCode: "4", LongURL: "https://example.com", CreatedAt: suite.now, ExpiresAt: suite.in(3)}, nil)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com", ExpiresIn: "3"})

		suite.NoError(err)
		suite.Require().NotNil(link)
		suite.Equal("4", link.ShortCode)
		suite.Equal(suite.in(3), link.ExpiresAt)
	})

	suite.Run("dedup lookup error", func() {
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://example.com").
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com"})

		suite.ErrorIs(err, suite.errUnknown)
		suite.Empty(entity.ErrorKind(err))
		suite.Nil(link)
	})

	suite.Run("insert error", func() {
		suite.linkRepoMock.
			On("RetrieveByLongURL", ctx, "https://example.com").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Insert", ctx, "https://example.com", suite.now, (*time.Time)(nil)).
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.uc.Shorten(ctx, ShortenInput{LongURL: "https://example.com"})

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(link)
		suite.True(suite.tx.rolledBack)
	})
}

func (suite *LinkUseCaseTestSuite) TestResolve() {
	ctx := context.Background()

	suite.Run("not found", func() {
		suite.linkRepoMock.
			On("RetrieveAndRecordHit", ctx, "nope", suite.now).
			Once().
			Return(nil, entity.ErrLinkNotFound)

		link, err := suite.uc.Resolve(ctx, "nope")

		suite.ErrorIs(err, entity.ErrLinkNotFound)
		suite.Equal(entity.KindNotFound, entity.ErrorKind(err))
		suite.Nil(link)
	})

	suite.Run("unknown error", func() {
		suite.linkRepoMock.
			On("RetrieveAndRecordHit", ctx, "abc", suite.now).
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.uc.Resolve(ctx, "abc")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(link)
	})

	suite.Run("success", func() {
		suite.linkRepoMock.
			On("RetrieveAndRecordHit", ctx, "abc", suite.now).
			Once().
			Return(&entity.Link{ID: 1, ShortCode: "abc", LongURL: "https://example.com", Hits: 1, LastAccessed: &suite.now}, nil)

		link, err := suite.uc.Resolve(ctx, "abc")

		suite.NoError(err)
		suite.Require().NotNil(link)
		suite.Equal("https://example.com", link.LongURL)
		suite.Equal(int64(1), link.Hits)
	})
}

func (suite *LinkUseCaseTestSuite) TestExpand() {
	ctx := context.Background()

	suite.Run("not found", func() {
		suite.linkRepoMock.
			On("RetrieveByShortCode", ctx, "nope").
			Once().
			Return(nil, entity.ErrLinkNotFound)

		view, err := suite.uc.Expand(ctx, "nope")

		suite.ErrorIs(err, entity.ErrLinkNotFound)
		suite.Nil(view)
	})

	suite.Run("live link", func() {
		suite.linkRepoMock.
			On("RetrieveByShortCode", ctx, "abc").
			Once().
			Return(&entity.Link{ID: 1, ShortCode: "abc", LongURL: "https://example.com", ExpiresAt: suite.in(1)}, nil)

		view, err := suite.uc.Expand(ctx, "abc")

		suite.NoError(err)
		suite.Require().NotNil(view)
		suite.Equal("abc", view.ShortCode)
		suite.False(view.Expired)
	})

	suite.Run("expired link", func() {
		suite.linkRepoMock.
			On("RetrieveByShortCode", ctx, "old").
			Once().
			Return(&entity.Link{ID: 2, ShortCode: "old", LongURL: "https://example.com", ExpiresAt: suite.in(-1)}, nil)

		view, err := suite.uc.Expand(ctx, "old")

		suite.NoError(err)
		suite.Require().NotNil(view)
		suite.True(view.Expired)
	})
}

func (suite *LinkUseCaseTestSuite) TestRecent() {
	ctx := context.Background()

	suite.Run("unknown error", func() {
		suite.linkRepoMock.
			On("ListRecent", ctx, RecentLimit).
			Once().
			Return(nil, suite.errUnknown)

		links, err := suite.uc.Recent(ctx)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(links)
	})

	suite.Run("success", func() {
		suite.linkRepoMock.
			On("ListRecent", ctx, RecentLimit).
			Once().
			Return([]*entity.Link{{ID: 2, ShortCode: "2"}, {ID: 1, ShortCode: "1"}}, nil)

		links, err := suite.uc.Recent(ctx)

		suite.NoError(err)
		suite.Len(links, 2)
		suite.Equal("2", links[0].ShortCode)
	})
}

func TestLinkUseCase(t *testing.T) {
	suite.Run(t, new(LinkUseCaseTestSuite))
}
