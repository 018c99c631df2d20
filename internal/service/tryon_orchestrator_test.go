package service

import (
	"context"
	"errors"
	"fitlook/internal/entity"
	"fitlook/internal/llm"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type orchestratorFixture struct {
	gateway  *mockGateway
	uploader *mockUploader
	history  *mockHistory
	garments *mockGarments

	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	name    string
	payload interface{}
}

func newFixture() *orchestratorFixture {
	return &orchestratorFixture{
		gateway:  &mockGateway{},
		uploader: &mockUploader{},
		history:  &mockHistory{},
		garments: &mockGarments{},
	}
}

func (f *orchestratorFixture) orchestrator() *Orchestrator {
	return NewOrchestrator("shop-1", OrchestratorDeps{
		Garments: f.garments,
		Gateway:  f.gateway,
		Uploader: f.uploader,
		History:  f.history,
		Notify: func(event string, payload interface{}) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, recordedEvent{name: event, payload: payload})
		},
		Now: func() time.Time { return fixedNow },
	})
}

func (f *orchestratorFixture) progressEvents() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []interface{}
	for _, ev := range f.events {
		if ev.name == EventTryOnProgress {
			out = append(out, ev.payload)
		}
	}
	return out
}

func testCustomer() *entity.DbCustomer {
	return &entity.DbCustomer{ID: "cust-1", UserID: "shop-1", Name: "Arjun", PhotoURL: "https://cdn.test/arjun.jpg"}
}

func testGarment(id string) entity.DbGarment {
	return entity.DbGarment{ID: id, UserID: "shop-1", Name: id, Category: "Suit", ImageURL: "https://cdn.test/" + id + ".png"}
}

func forGarment(id string) interface{} {
	return mock.MatchedBy(func(req llm.GenerateRequest) bool {
		return req.GarmentImageURL == "https://cdn.test/"+id+".png"
	})
}

func pngImage() *llm.GeneratedImage {
	return &llm.GeneratedImage{Data: []byte("png-bytes"), MimeType: "image/png"}
}

func TestRunSingleSuccess(t *testing.T) {
	f := newFixture()
	garment := testGarment("g1")

	f.gateway.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.GenerateRequest) bool {
		return req.CustomerImageURL == "https://cdn.test/arjun.jpg" &&
			req.ModelID == "gemini-3-pro-image-preview" &&
			strings.Contains(req.Prompt, "keep the beard") &&
			strings.Contains(req.Prompt, "system rules")
	})).Return(pngImage(), nil).Once()
	f.uploader.On("Upload", mock.Anything, []byte("png-bytes"), "image/png", FolderTryOns).Return("https://store.test/tryons/1.png", nil).Once()

	var saved *entity.DbTryonHistory
	f.history.On("CreateHistory", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*entity.DbTryonHistory)
	}).Return(nil).Once()

	o := f.orchestrator()
	outcome, err := o.Run(context.Background(), TryOnInput{
		Customer:     testCustomer(),
		Selection:    SelectionSingle,
		Garment:      &garment,
		ModeID:       llm.ModePro,
		SystemPrompt: "system rules",
		Instruction:  "keep the beard",
	})
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, outcome.Status)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "g1", outcome.Results[0].Garment.ID)
	assert.Equal(t, "https://store.test/tryons/1.png", outcome.Results[0].URL)
	assert.Equal(t, StateSucceeded, o.State())

	require.NotNil(t, saved)
	assert.Equal(t, "shop-1", saved.UserID)
	assert.Equal(t, "cust-1", saved.CustomerID)
	require.NotNil(t, saved.GarmentID)
	assert.Equal(t, "g1", *saved.GarmentID)
	assert.Equal(t, "https://store.test/tryons/1.png", saved.OutputImageURL)
	assert.Equal(t, "Pro Mode (High Quality)", saved.PromptUsed)
	assert.Equal(t, fixedNow, saved.CreatedAt)

	f.gateway.AssertExpectations(t)
	f.uploader.AssertExpectations(t)
	f.history.AssertExpectations(t)
	f.garments.AssertNotCalled(t, "ListGarments", mock.Anything, mock.Anything)
}

func TestRunSingleFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *orchestratorFixture)
		assertErr func(t *testing.T, err error)
	}{
		{
			name: "网关失败",
			setup: func(f *orchestratorFixture) {
				f.gateway.On("Generate", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)
			},
			assertErr: func(t *testing.T, err error) {
				var genErr *GenerationError
				require.ErrorAs(t, err, &genErr)
				assert.ErrorIs(t, err, context.DeadlineExceeded)
			},
		},
		{
			name: "网关未返回图片",
			setup: func(f *orchestratorFixture) {
				f.gateway.On("Generate", mock.Anything, mock.Anything).Return(&llm.GeneratedImage{}, nil)
			},
			assertErr: func(t *testing.T, err error) {
				var genErr *GenerationError
				require.ErrorAs(t, err, &genErr)
				assert.ErrorIs(t, err, llm.ErrNoImage)
			},
		},
		{
			name: "上传失败",
			setup: func(f *orchestratorFixture) {
				f.gateway.On("Generate", mock.Anything, mock.Anything).Return(pngImage(), nil)
				f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket offline"))
			},
			assertErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrPersistenceFailed)
				assert.Contains(t, err.Error(), "bucket offline")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)
			garment := testGarment("g1")

			o := f.orchestrator()
			outcome, err := o.Run(context.Background(), TryOnInput{
				Customer:  testCustomer(),
				Selection: SelectionSingle,
				Garment:   &garment,
			})
			require.Error(t, err)
			tt.assertErr(t, err)
			require.NotNil(t, outcome)
			assert.Equal(t, StateFailed, outcome.Status)
			assert.Empty(t, outcome.Results)
			assert.Equal(t, StateFailed, o.State())
			f.history.AssertNotCalled(t, "CreateHistory", mock.Anything, mock.Anything)
		})
	}
}

func TestRunHistoryFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	garment := testGarment("g1")
	f.gateway.On("Generate", mock.Anything, mock.Anything).Return(pngImage(), nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://store.test/a.png", nil)
	f.history.On("CreateHistory", mock.Anything, mock.Anything).Return(errors.New("db down"))

	outcome, err := f.orchestrator().Run(context.Background(), TryOnInput{
		Customer:  testCustomer(),
		Selection: SelectionSingle,
		Garment:   &garment,
	})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "https://store.test/a.png", outcome.Results[0].URL)
	f.history.AssertNumberOfCalls(t, "CreateHistory", 1)
}

func TestRunRejectsInvalidSelection(t *testing.T) {
	garment := testGarment("g1")
	noImage := testGarment("g2")
	noImage.ImageURL = ""

	tests := []struct {
		name  string
		input TryOnInput
	}{
		{name: "缺少顾客", input: TryOnInput{Selection: SelectionSingle, Garment: &garment}},
		{name: "顾客没有照片", input: TryOnInput{Customer: &entity.DbCustomer{ID: "c"}, Selection: SelectionSingle, Garment: &garment}},
		{name: "单件缺少服装", input: TryOnInput{Customer: testCustomer(), Selection: SelectionSingle}},
		{name: "服装没有图片", input: TryOnInput{Customer: testCustomer(), Selection: SelectionSingle, Garment: &noImage}},
		{name: "分类为空", input: TryOnInput{Customer: testCustomer(), Selection: SelectionCategory, Category: "  "}},
		{name: "未知模式", input: TryOnInput{Customer: testCustomer(), Selection: SelectionSingle, Garment: &garment, ModeID: "ultra"}},
		{name: "未知选择方式", input: TryOnInput{Customer: testCustomer(), Selection: "all"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			o := f.orchestrator()

			_, err := o.Run(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidSelection)
			assert.Equal(t, StateFailed, o.State())
			f.gateway.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
			f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.garments.AssertNotCalled(t, "ListGarments", mock.Anything, mock.Anything)
			f.history.AssertNotCalled(t, "CreateHistory", mock.Anything, mock.Anything)
		})
	}
}

func TestRunBatchEmptyCategory(t *testing.T) {
	f := newFixture()
	f.garments.On("ListGarments", mock.Anything, entity.GarmentQuery{UserID: "shop-1", Category: "Tuxedo"}).Return([]entity.DbGarment{}, nil)

	_, err := f.orchestrator().Run(context.Background(), TryOnInput{
		Customer:  testCustomer(),
		Selection: SelectionCategory,
		Category:  "Tuxedo",
	})
	assert.ErrorIs(t, err, ErrEmptyCategory)
	f.gateway.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestRunBatchPartialFailure(t *testing.T) {
	f := newFixture()
	g1 := testGarment("g1")
	g2 := testGarment("g2")
	f.garments.On("ListGarments", mock.Anything, entity.GarmentQuery{UserID: "shop-1", Category: "Suit"}).
		Return([]entity.DbGarment{g1, g2}, nil)
	f.gateway.On("Generate", mock.Anything, forGarment("g1")).Return(pngImage(), nil).Once()
	f.gateway.On("Generate", mock.Anything, forGarment("g2")).Return(nil, errors.New("rate limited")).Once()
	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, FolderTryOns).Return("https://store.test/url1.png", nil).Once()

	var labels []string
	f.history.On("CreateHistory", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		labels = append(labels, args.Get(1).(*entity.DbTryonHistory).PromptUsed)
	}).Return(nil)

	o := f.orchestrator()
	outcome, err := o.Run(context.Background(), TryOnInput{
		Customer:  testCustomer(),
		Selection: SelectionCategory,
		Category:  "Suit",
	})
	require.NoError(t, err)

	assert.Equal(t, StatePartiallySucceeded, outcome.Status)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "g1", outcome.Results[0].Garment.ID)
	assert.Equal(t, "https://store.test/url1.png", outcome.Results[0].URL)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, 2, outcome.Total)
	assert.Nil(t, o.Progress())
	assert.Equal(t, StatePartiallySucceeded, o.State())
	assert.Equal(t, []string{"Normal Mode (Fast) - Category: Suit"}, labels)

	progress := f.progressEvents()
	require.Len(t, progress, 3)
	assert.Equal(t, Progress{Current: 1, Total: 2}, progress[0])
	assert.Equal(t, Progress{Current: 2, Total: 2}, progress[1])
	assert.Nil(t, progress[2])
}

func TestRunBatchKeepsOrderAndSkipsFailures(t *testing.T) {
	f := newFixture()
	garments := []entity.DbGarment{testGarment("g1"), testGarment("g2"), testGarment("g3"), testGarment("g4")}
	f.garments.On("ListGarments", mock.Anything, mock.Anything).Return(garments, nil)
	f.gateway.On("Generate", mock.Anything, forGarment("g1")).Return(pngImage(), nil)
	f.gateway.On("Generate", mock.Anything, forGarment("g2")).Return(&llm.GeneratedImage{Data: []byte("fail-upload"), MimeType: "image/png"}, nil)
	f.gateway.On("Generate", mock.Anything, forGarment("g3")).Return(nil, errors.New("no image generated"))
	f.gateway.On("Generate", mock.Anything, forGarment("g4")).Return(&llm.GeneratedImage{Data: []byte("four"), MimeType: "image/jpeg"}, nil)
	f.uploader.On("Upload", mock.Anything, []byte("png-bytes"), mock.Anything, mock.Anything).Return("u1", nil)
	f.uploader.On("Upload", mock.Anything, []byte("fail-upload"), mock.Anything, mock.Anything).Return("", errors.New("denied"))
	f.uploader.On("Upload", mock.Anything, []byte("four"), mock.Anything, mock.Anything).Return("u4", nil)
	f.history.On("CreateHistory", mock.Anything, mock.Anything).Return(nil)

	o := f.orchestrator()
	outcome, err := o.Run(context.Background(), TryOnInput{
		Customer:  testCustomer(),
		Selection: SelectionCategory,
		Category:  "Suit",
	})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "g1", outcome.Results[0].Garment.ID)
	assert.Equal(t, "g4", outcome.Results[1].Garment.ID)
	assert.Equal(t, 2, outcome.Failed)
	f.history.AssertNumberOfCalls(t, "CreateHistory", 2)

	for _, ev := range f.progressEvents() {
		if ev == nil {
			continue
		}
		p := ev.(Progress)
		assert.GreaterOrEqual(t, p.Current, 1)
		assert.LessOrEqual(t, p.Current, p.Total)
		assert.Equal(t, 4, p.Total)
	}

	results, idx := o.Results()
	assert.Len(t, results, 2)
	assert.Equal(t, 0, idx)
}

func TestRunBatchFullyFailed(t *testing.T) {
	f := newFixture()
	f.garments.On("ListGarments", mock.Anything, mock.Anything).Return([]entity.DbGarment{testGarment("g1"), testGarment("g2")}, nil)
	f.gateway.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	o := f.orchestrator()
	outcome, err := o.Run(context.Background(), TryOnInput{
		Customer:  testCustomer(),
		Selection: SelectionCategory,
		Category:  "Suit",
	})
	assert.ErrorIs(t, err, ErrBatchFullyFailed)
	require.NotNil(t, outcome)
	assert.Equal(t, StateFailed, outcome.Status)
	assert.Equal(t, 2, outcome.Failed)
	assert.Equal(t, StateFailed, o.State())
	assert.Nil(t, o.Progress())
	f.gateway.AssertNumberOfCalls(t, "Generate", 2)
	f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunBatchCancellationStopsFurtherCalls(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.garments.On("ListGarments", mock.Anything, mock.Anything).Return([]entity.DbGarment{testGarment("g1"), testGarment("g2"), testGarment("g3")}, nil)
	f.gateway.On("Generate", mock.Anything, forGarment("g1")).Return(pngImage(), nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return("u1", nil)
	f.history.On("CreateHistory", mock.Anything, mock.Anything).Return(nil)

	outcome, err := f.orchestrator().Run(ctx, TryOnInput{
		Customer:  testCustomer(),
		Selection: SelectionCategory,
		Category:  "Suit",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Cancelled)
	assert.Equal(t, StatePartiallySucceeded, outcome.Status)
	require.Len(t, outcome.Results, 1)
	f.gateway.AssertNumberOfCalls(t, "Generate", 1)
	f.history.AssertNumberOfCalls(t, "CreateHistory", 1)
}

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	f := newFixture()
	garment := testGarment("g1")
	started := make(chan struct{})
	release := make(chan struct{})

	f.gateway.On("Generate", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(pngImage(), nil).Once()
	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("u1", nil)
	f.history.On("CreateHistory", mock.Anything, mock.Anything).Return(nil)

	o := f.orchestrator()
	input := TryOnInput{Customer: testCustomer(), Selection: SelectionSingle, Garment: &garment}

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), input)
		done <- err
	}()

	<-started
	assert.Equal(t, StateRunning, o.State())
	_, err := o.Run(context.Background(), input)
	assert.ErrorIs(t, err, ErrAlreadyInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateSucceeded, o.State())
	f.gateway.AssertNumberOfCalls(t, "Generate", 1)
}

func TestRunRecoversFromPanicAndUnlocks(t *testing.T) {
	f := newFixture()
	garment := testGarment("g1")

	f.gateway.On("Generate", mock.Anything, mock.Anything).Panic("provider exploded").Once()
	f.gateway.On("Generate", mock.Anything, mock.Anything).Return(pngImage(), nil).Once()
	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("u1", nil)
	f.history.On("CreateHistory", mock.Anything, mock.Anything).Return(nil)

	o := f.orchestrator()
	input := TryOnInput{Customer: testCustomer(), Selection: SelectionSingle, Garment: &garment}

	outcome, err := o.Run(context.Background(), input)
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Contains(t, err.Error(), "provider exploded")
	assert.Equal(t, StateFailed, o.State())
	assert.Nil(t, o.Progress())

	outcome, err = o.Run(context.Background(), input)
	require.NoError(t, err, "异常后会话应可再次试穿")
	assert.Equal(t, StateSucceeded, outcome.Status)
	f.gateway.AssertNumberOfCalls(t, "Generate", 2)
}

func TestOrchestratorNavigation(t *testing.T) {
	f := newFixture()
	f.garments.On("ListGarments", mock.Anything, mock.Anything).Return([]entity.DbGarment{testGarment("g1"), testGarment("g2")}, nil)
	f.gateway.On("Generate", mock.Anything, mock.Anything).Return(pngImage(), nil)
	f.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("u", nil)
	f.history.On("CreateHistory", mock.Anything, mock.Anything).Return(nil)

	o := f.orchestrator()
	_, err := o.Run(context.Background(), TryOnInput{Customer: testCustomer(), Selection: SelectionCategory, Category: "Suit"})
	require.NoError(t, err)

	item, idx, ok := o.Prev()
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "g2", item.Garment.ID)

	item, idx, ok = o.Next()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "g1", item.Garment.ID)

	item, err = o.Select(1)
	require.NoError(t, err)
	assert.Equal(t, "g2", item.Garment.ID)

	_, err = o.Select(5)
	assert.Error(t, err)
	f.gateway.AssertNumberOfCalls(t, "Generate", 2)
}

func TestOutcomeResponse(t *testing.T) {
	var nilOutcome *Outcome
	resp := nilOutcome.Response(0)
	assert.Equal(t, string(StateFailed), resp.Status)
	assert.NotNil(t, resp.Results)

	outcome := &Outcome{Status: StateSucceeded, Total: 1, Results: []entity.TryOnResultItem{{URL: "u"}}}
	resp = outcome.Response(0)
	assert.Equal(t, "succeeded", resp.Status)
	assert.Len(t, resp.Results, 1)
}
