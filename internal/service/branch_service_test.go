package service_test

import (
	"context"
	"errors"
	"testing"

	"plotforge/internal/mocks"
	"plotforge/internal/models"
	"plotforge/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBranchService(branches *mocks.BranchRepository, chapters *mocks.ChapterRepository) *service.BranchService {
	return service.NewBranchService(nil, &mocks.TxManager{}, branches, chapters, zap.NewNop())
}

func TestResolveTrunkDefaultsWhenStoryEmpty(t *testing.T) {
	branches := new(mocks.BranchRepository)
	chapters := new(mocks.ChapterRepository)
	svc := newBranchService(branches, chapters)
	storyID := uuid.New()

	chapters.On("EarliestBranchNumber", mock.Anything, mock.Anything, storyID).
		Return(0, models.ErrNotFound)

	n, err := svc.ResolveTrunk(context.Background(), nil, storyID)
	require.NoError(t, err)
	assert.Equal(t, models.TrunkBranchNumber, n)
}

func TestResolveTrunkDerivedFromEarliestChapter(t *testing.T) {
	branches := new(mocks.BranchRepository)
	chapters := new(mocks.ChapterRepository)
	svc := newBranchService(branches, chapters)
	storyID := uuid.New()

	// Legacy stories may have started numbering anywhere.
	chapters.On("EarliestBranchNumber", mock.Anything, mock.Anything, storyID).
		Return(3, nil)

	n, err := svc.ResolveTrunk(context.Background(), nil, storyID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAllocateBranchNumber(t *testing.T) {
	branches := new(mocks.BranchRepository)
	chapters := new(mocks.ChapterRepository)
	svc := newBranchService(branches, chapters)
	storyID := uuid.New()

	chapters.On("MaxBranchNumber", mock.Anything, mock.Anything, storyID).
		Return(4, nil).Once()
	n, err := svc.AllocateBranchNumber(context.Background(), nil, storyID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	chapters.On("MaxBranchNumber", mock.Anything, mock.Anything, storyID).
		Return(0, models.ErrNotFound).Once()
	n, err = svc.AllocateBranchNumber(context.Background(), nil, storyID)
	require.NoError(t, err)
	assert.Equal(t, models.FirstForkBranchNumber, n)
}

func TestEnsureExists(t *testing.T) {
	storyID := uuid.New()

	t.Run("trunk always exists", func(t *testing.T) {
		branches := new(mocks.BranchRepository)
		chapters := new(mocks.ChapterRepository)
		svc := newBranchService(branches, chapters)

		chapters.On("EarliestBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)

		require.NoError(t, svc.EnsureExists(context.Background(), storyID, 1))
		branches.AssertNotCalled(t, "GetByNumber", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("branch row counts", func(t *testing.T) {
		branches := new(mocks.BranchRepository)
		chapters := new(mocks.ChapterRepository)
		svc := newBranchService(branches, chapters)

		chapters.On("EarliestBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)
		branches.On("GetByNumber", mock.Anything, mock.Anything, storyID, 2).
			Return(&models.Branch{StoryID: storyID, BranchNumber: 2}, nil)

		require.NoError(t, svc.EnsureExists(context.Background(), storyID, 2))
	})

	t.Run("legacy chapters count", func(t *testing.T) {
		branches := new(mocks.BranchRepository)
		chapters := new(mocks.ChapterRepository)
		svc := newBranchService(branches, chapters)

		chapters.On("EarliestBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)
		branches.On("GetByNumber", mock.Anything, mock.Anything, storyID, 2).
			Return(nil, models.ErrBranchNotFound)
		chapters.On("ListActiveThrough", mock.Anything, mock.Anything, storyID, 2, mock.Anything).
			Return([]*models.Chapter{{BranchNumber: 2, ChapterNumber: 1}}, nil)

		require.NoError(t, svc.EnsureExists(context.Background(), storyID, 2))
	})

	t.Run("unknown branch is rejected", func(t *testing.T) {
		branches := new(mocks.BranchRepository)
		chapters := new(mocks.ChapterRepository)
		svc := newBranchService(branches, chapters)

		chapters.On("EarliestBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)
		branches.On("GetByNumber", mock.Anything, mock.Anything, storyID, 7).
			Return(nil, models.ErrBranchNotFound)
		chapters.On("ListActiveThrough", mock.Anything, mock.Anything, storyID, 7, mock.Anything).
			Return(nil, nil)

		err := svc.EnsureExists(context.Background(), storyID, 7)
		require.ErrorIs(t, err, models.ErrBranchNotFound)
	})
}

func TestForkCreatesBranchAndClonesPrefixOnce(t *testing.T) {
	branches := new(mocks.BranchRepository)
	chapters := new(mocks.ChapterRepository)
	svc := newBranchService(branches, chapters)
	storyID := uuid.New()

	chapters.On("MaxBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)
	branches.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(b *models.Branch) bool {
		return b.StoryID == storyID && b.BranchNumber == 2 &&
			b.ParentBranch != nil && *b.ParentBranch == 1 && b.ForkChapter == 3
	})).Return(nil)
	branches.On("ClonePrefix", mock.Anything, mock.Anything, storyID, 1, 2, 3).Return(nil)

	branch, err := svc.Fork(context.Background(), storyID, 1, 3, "the other door")
	require.NoError(t, err)
	assert.Equal(t, 2, branch.BranchNumber)
	assert.Equal(t, "the other door", branch.Label)

	branches.AssertNumberOfCalls(t, "ClonePrefix", 1)
}

func TestForkDefaultsToTrunk(t *testing.T) {
	branches := new(mocks.BranchRepository)
	chapters := new(mocks.ChapterRepository)
	svc := newBranchService(branches, chapters)
	storyID := uuid.New()

	chapters.On("EarliestBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)
	chapters.On("MaxBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)
	branches.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(b *models.Branch) bool {
		return b.ParentBranch != nil && *b.ParentBranch == 1
	})).Return(nil)
	branches.On("ClonePrefix", mock.Anything, mock.Anything, storyID, 1, 2, 2).Return(nil)

	// fromBranch 0 resolves to the story's trunk.
	branch, err := svc.Fork(context.Background(), storyID, 0, 2, "")
	require.NoError(t, err)
	require.NotNil(t, branch.ParentBranch)
	assert.Equal(t, 1, *branch.ParentBranch)
}

func TestForkFailsWhenCloneFails(t *testing.T) {
	branches := new(mocks.BranchRepository)
	chapters := new(mocks.ChapterRepository)
	svc := newBranchService(branches, chapters)
	storyID := uuid.New()

	chapters.On("MaxBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)
	branches.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	branches.On("ClonePrefix", mock.Anything, mock.Anything, storyID, 1, 2, 3).
		Return(errors.New("copy failed"))

	_, err := svc.Fork(context.Background(), storyID, 1, 3, "")
	require.Error(t, err)
}

func TestBranchTreeSynthesizesTrunk(t *testing.T) {
	branches := new(mocks.BranchRepository)
	chapters := new(mocks.ChapterRepository)
	svc := newBranchService(branches, chapters)
	storyID := uuid.New()

	parent := 1
	branches.On("ListByStory", mock.Anything, mock.Anything, storyID).Return([]*models.Branch{
		{StoryID: storyID, BranchNumber: 2, ParentBranch: &parent, ForkChapter: 3, Label: "alt"},
	}, nil)
	chapters.On("EarliestBranchNumber", mock.Anything, mock.Anything, storyID).Return(1, nil)
	chapters.On("ListActiveThrough", mock.Anything, mock.Anything, storyID, 1, mock.Anything).
		Return([]*models.Chapter{{ChapterNumber: 1}, {ChapterNumber: 2}, {ChapterNumber: 3}}, nil)
	chapters.On("ListActiveThrough", mock.Anything, mock.Anything, storyID, 2, mock.Anything).
		Return([]*models.Chapter{{ChapterNumber: 1}, {ChapterNumber: 2}, {ChapterNumber: 3}, {ChapterNumber: 4}}, nil)

	nodes, err := svc.BranchTree(context.Background(), storyID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	// The trunk predates branch rows and is synthesized in front.
	assert.Equal(t, 1, nodes[0].BranchNumber)
	assert.Nil(t, nodes[0].ParentBranch)
	assert.Len(t, nodes[0].Chapters, 3)

	assert.Equal(t, 2, nodes[1].BranchNumber)
	require.NotNil(t, nodes[1].ParentBranch)
	assert.Equal(t, 1, *nodes[1].ParentBranch)
	assert.Len(t, nodes[1].Chapters, 4)
}
