package release

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"release-builder/core/storage"
	"release-builder/core/storage/mocks"
	"release-builder/feature/release/identifier"
	"release-builder/feature/release/rf2table"
)

const (
	buildBucket     = "release-builds"
	publishedBucket = "release-published"

	conceptHeader = "id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId"
)

type idClientMock struct {
	mock.Mock
}

func (m *idClientMock) CreateSCTID(ctx context.Context, req identifier.CreateRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *idClientMock) CreateSCTIDs(ctx context.Context, req identifier.BulkCreateRequest) (map[string]int64, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(map[string]int64)
	return result, args.Error(1)
}

// uploadCapture collects every object streamed to PutObject, keyed by
// object name.
type uploadCapture struct {
	mu      sync.Mutex
	objects map[string]string
}

func newUploadCapture() *uploadCapture {
	return &uploadCapture{objects: make(map[string]string)}
}

func (u *uploadCapture) install(client *mocks.Client) {
	client.On("PutObject", mock.Anything, buildBucket, mock.AnythingOfType("string"), mock.Anything, int64(-1), mock.Anything).
		Run(func(args mock.Arguments) {
			data, _ := io.ReadAll(args.Get(3).(io.Reader))
			u.mu.Lock()
			u.objects[args.String(2)] = string(data)
			u.mu.Unlock()
		}).
		Return(minio.UploadInfo{}, nil)
}

func (u *uploadCapture) get(name string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	content, ok := u.objects[name]
	return content, ok
}

func objectChannel(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		ch <- minio.ObjectInfo{Key: key}
	}
	close(ch)
	return ch
}

func body(lines ...string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(strings.Join(lines, "\r\n") + "\r\n"))
}

func newTestService(client *mocks.Client, ids identifier.Client, cfg Config) *Service {
	dao := storage.NewReleaseDAO(client, storage.Config{
		BuildBucket:     buildBucket,
		PublishedBucket: publishedBucket,
	})
	return NewService(dao, ids, identifier.Config{}, cfg, "international", zap.NewNop())
}

func TestGenerateReleaseFilesProducesAllThreeForms(t *testing.T) {
	client := &mocks.Client{}
	uploads := newUploadCapture()
	uploads.install(client)

	deltaName := "sct2_Concept_Delta_INT_20210131.txt"
	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-1/transformed-files/" + deltaName))
	client.On("GetObject", mock.Anything, buildBucket, "build-1/transformed-files/"+deltaName, mock.Anything).
		Return(body(
			conceptHeader,
			"362969004\t20210131\t0\t900000000000207008\t900000000000074008",
		), nil)
	client.On("GetObject", mock.Anything, publishedBucket, "international/previous-package/sct2_Concept_Snapshot_INT_20210131.txt", mock.Anything).
		Return(body(
			conceptHeader,
			"138875005\t20200731\t1\t900000000000207008\t900000000000074008",
			"362969004\t20190731\t1\t900000000000207008\t900000000000074008",
			"404684003\t20190731\t1\t900000000000207008\t900000000000073002",
			"900000000000441003\t20200731\t1\t900000000000012004\t900000000000074008",
		), nil)
	client.On("GetObject", mock.Anything, publishedBucket, "international/previous-package/sct2_Concept_Full_INT_20210131.txt", mock.Anything).
		Return(body(
			conceptHeader,
			"138875005\t20190731\t1\t900000000000207008\t900000000000074008",
			"138875005\t20200731\t1\t900000000000207008\t900000000000074008",
			"362969004\t20190731\t1\t900000000000207008\t900000000000074008",
			"404684003\t20190731\t1\t900000000000207008\t900000000000073002",
			"900000000000441003\t20190731\t1\t900000000000012004\t900000000000074008",
			"900000000000441003\t20200731\t1\t900000000000012004\t900000000000074008",
		), nil)

	service := newTestService(client, &idClientMock{}, Config{})
	build := &Build{
		ID:               "build-1",
		EffectiveTime:    "20210131",
		PreviousPackage:  "previous-package",
		FirstTimeRelease: false,
	}
	require.NoError(t, service.GenerateReleaseFiles(context.Background(), build))

	delta, ok := uploads.get("build-1/output-files/" + deltaName)
	require.True(t, ok)
	assert.Equal(t, strings.Join([]string{
		conceptHeader,
		"362969004\t20210131\t0\t900000000000207008\t900000000000074008",
	}, "\r\n")+"\r\n", delta)

	full, ok := uploads.get("build-1/output-files/sct2_Concept_Full_INT_20210131.txt")
	require.True(t, ok)
	assert.Equal(t, strings.Join([]string{
		conceptHeader,
		"138875005\t20190731\t1\t900000000000207008\t900000000000074008",
		"138875005\t20200731\t1\t900000000000207008\t900000000000074008",
		"362969004\t20190731\t1\t900000000000207008\t900000000000074008",
		"362969004\t20210131\t0\t900000000000207008\t900000000000074008",
		"404684003\t20190731\t1\t900000000000207008\t900000000000073002",
		"900000000000441003\t20190731\t1\t900000000000012004\t900000000000074008",
		"900000000000441003\t20200731\t1\t900000000000012004\t900000000000074008",
	}, "\r\n")+"\r\n", full)

	snapshot, ok := uploads.get("build-1/output-files/sct2_Concept_Snapshot_INT_20210131.txt")
	require.True(t, ok)
	assert.Equal(t, strings.Join([]string{
		conceptHeader,
		"138875005\t20200731\t1\t900000000000207008\t900000000000074008",
		"362969004\t20210131\t0\t900000000000207008\t900000000000074008",
		"404684003\t20190731\t1\t900000000000207008\t900000000000073002",
		"900000000000441003\t20200731\t1\t900000000000012004\t900000000000074008",
	}, "\r\n")+"\r\n", snapshot)
}

func TestGenerateReleaseFilesFirstTimeReleaseSkipsHistory(t *testing.T) {
	client := &mocks.Client{}
	uploads := newUploadCapture()
	uploads.install(client)

	deltaName := "sct2_Concept_Delta_INT_20210131.txt"
	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-2/transformed-files/" + deltaName))
	client.On("GetObject", mock.Anything, buildBucket, "build-2/transformed-files/"+deltaName, mock.Anything).
		Return(body(
			conceptHeader,
			"138875005\t20210131\t1\t900000000000207008\t900000000000074008",
			"362969004\t20210131\t1\t900000000000207008\t900000000000074008",
		), nil)

	service := newTestService(client, &idClientMock{}, Config{})
	build := &Build{ID: "build-2", EffectiveTime: "20210131", FirstTimeRelease: true}
	require.NoError(t, service.GenerateReleaseFiles(context.Background(), build))

	// Without history, Full and Snapshot both equal the delta content.
	want := strings.Join([]string{
		conceptHeader,
		"138875005\t20210131\t1\t900000000000207008\t900000000000074008",
		"362969004\t20210131\t1\t900000000000207008\t900000000000074008",
	}, "\r\n") + "\r\n"
	for _, name := range []string{
		"build-2/output-files/sct2_Concept_Delta_INT_20210131.txt",
		"build-2/output-files/sct2_Concept_Full_INT_20210131.txt",
		"build-2/output-files/sct2_Concept_Snapshot_INT_20210131.txt",
	} {
		content, ok := uploads.get(name)
		require.True(t, ok, name)
		assert.Equal(t, want, content)
	}

	// No published package reads on a first-time release.
	for _, call := range client.Calls {
		if call.Method == "GetObject" {
			assert.Equal(t, buildBucket, call.Arguments.String(1))
		}
	}
}

func TestGenerateReleaseFilesFormatDefectFailsWithoutRetry(t *testing.T) {
	client := &mocks.Client{}
	uploads := newUploadCapture()
	uploads.install(client)

	deltaName := "sct2_Concept_Delta_INT_20210131.txt"
	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-3/transformed-files/" + deltaName))
	client.On("GetObject", mock.Anything, buildBucket, mock.Anything, mock.Anything).
		Return(io.NopCloser(strings.NewReader("")), nil)

	service := newTestService(client, &idClientMock{}, Config{MaxRetries: 3})
	build := &Build{ID: "build-3", EffectiveTime: "20210131", FirstTimeRelease: true}
	err := service.GenerateReleaseFiles(context.Background(), build)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, deltaName, genErr.File)
	var formatErr *rf2table.FormatError
	assert.ErrorAs(t, err, &formatErr)
	client.AssertNumberOfCalls(t, "GetObject", 1)
}

func TestGenerateReleaseFilesRetriesTransientFailures(t *testing.T) {
	client := &mocks.Client{}
	deltaName := "sct2_Concept_Delta_INT_20210131.txt"
	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-4/transformed-files/" + deltaName))
	client.On("GetObject", mock.Anything, buildBucket, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	service := newTestService(client, &idClientMock{}, Config{MaxRetries: 1})
	build := &Build{ID: "build-4", EffectiveTime: "20210131", FirstTimeRelease: true}
	err := service.GenerateReleaseFiles(context.Background(), build)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, err.Error(), "after 2 attempts")
	client.AssertNumberOfCalls(t, "GetObject", 2)
}

func TestGenerateReleaseFilesCancelledBuildStops(t *testing.T) {
	client := &mocks.Client{}
	deltaName := "sct2_Concept_Delta_INT_20210131.txt"
	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-5/transformed-files/" + deltaName))

	service := newTestService(client, &idClientMock{}, Config{})
	build := &Build{ID: "build-5", EffectiveTime: "20210131", FirstTimeRelease: true}
	build.Cancel()

	err := service.GenerateReleaseFiles(context.Background(), build)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.False(t, IsTransient(err))
	client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateReleaseFilesExtensionMergesInternationalDelta(t *testing.T) {
	client := &mocks.Client{}
	uploads := newUploadCapture()
	uploads.install(client)

	deltaName := "sct2_Concept_Delta_AU_20210531.txt"
	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-7/transformed-files/" + deltaName))
	client.On("GetObject", mock.Anything, buildBucket, "build-7/transformed-files/"+deltaName, mock.Anything).
		Return(body(
			conceptHeader,
			"32570271000036106\t20210531\t1\t32570231000036109\t900000000000074008",
		), nil)
	// One international row predates the edition's previous release and
	// must not be re-imported; the other is new this dependency cycle.
	client.On("GetObject", mock.Anything, publishedBucket, "international/int-package/sct2_Concept_Delta_INT_20210131.txt", mock.Anything).
		Return(body(
			conceptHeader,
			"138875005\t20200731\t1\t900000000000207008\t900000000000074008",
			"404684003\t20210131\t1\t900000000000207008\t900000000000073002",
		), nil)

	service := newTestService(client, &idClientMock{}, Config{})
	build := &Build{
		ID:               "build-7",
		EffectiveTime:    "20210531",
		FirstTimeRelease: true,
		Extension: &Extension{
			DependencyPackage:       "int-package",
			DependencyEffectiveTime: "20210131",
			PreviousEffectiveTime:   "20200731",
		},
	}
	require.NoError(t, service.GenerateReleaseFiles(context.Background(), build))

	delta, ok := uploads.get("build-7/output-files/" + deltaName)
	require.True(t, ok)
	assert.Contains(t, delta, "404684003\t20210131\t1")
	assert.Contains(t, delta, "32570271000036106\t20210531\t1")
	assert.NotContains(t, delta, "138875005")

	snapshot, ok := uploads.get("build-7/output-files/sct2_Concept_Snapshot_AU_20210531.txt")
	require.True(t, ok)
	assert.Contains(t, snapshot, "404684003\t20210131\t1")
	assert.Contains(t, snapshot, "32570271000036106\t20210531\t1")
	assert.NotContains(t, snapshot, "138875005")

	full, ok := uploads.get("build-7/output-files/sct2_Concept_Full_AU_20210531.txt")
	require.True(t, ok)
	assert.Contains(t, full, "404684003\t20210131\t1")
	assert.NotContains(t, full, "138875005")
}

func TestTransformFilesTwoPhases(t *testing.T) {
	client := &mocks.Client{}
	uploads := newUploadCapture()
	uploads.install(client)

	inputName := "sct2_Concept_Delta_INT_20210131.txt"
	placeholderA := "1b2d85dd-42f5-4f27-9a1e-bd3bd1e1a2a5"
	placeholderB := "7d41bf40-32b0-4f0a-88a7-7e7b4a22e161"
	placeholderC := "c03b8ba4-9e2a-4b60-a0b8-2f6b2a69d9f4"

	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-6/input-files/" + inputName))
	// The input streams twice: once to collect placeholders, once to
	// rewrite lines.
	input := func() io.ReadCloser {
		return body(
			conceptHeader,
			placeholderA+"\t\t1\t\t900000000000074008",
			placeholderC+"\t\t1\t\t900000000000074008",
			placeholderB+"\t\t1\t\t900000000000074008",
		)
	}
	client.On("GetObject", mock.Anything, buildBucket, "build-6/input-files/"+inputName, mock.Anything).
		Return(input(), nil).Once()
	client.On("GetObject", mock.Anything, buildBucket, "build-6/input-files/"+inputName, mock.Anything).
		Return(input(), nil).Once()
	client.On("GetObject", mock.Anything, buildBucket, "build-6/preprocess-files/"+inputName, mock.Anything).
		Return(body(
			conceptHeader,
			"101009\t\t1\t\t900000000000074008",
			"103007\t\t1\t\t900000000000074008",
			"102002\t\t1\t\t900000000000074008",
		), nil)

	ids := &idClientMock{}
	ids.On("CreateSCTIDs", mock.Anything, mock.MatchedBy(func(req identifier.BulkCreateRequest) bool {
		return req.PartitionID == "00" &&
			assert.ObjectsAreEqual([]string{placeholderA, placeholderB, placeholderC}, req.UUIDs)
	})).Return(map[string]int64{
		placeholderA: 101009,
		placeholderB: 102002,
		placeholderC: 103007,
	}, nil).Once()

	service := newTestService(client, ids, Config{
		ModuleID: "900000000000207008",
	})
	build := &Build{ID: "build-6", EffectiveTime: "20210131"}
	require.NoError(t, service.TransformFiles(context.Background(), build))

	preprocessed, ok := uploads.get("build-6/preprocess-files/" + inputName)
	require.True(t, ok)
	assert.Equal(t, strings.Join([]string{
		conceptHeader,
		"101009\t\t1\t\t900000000000074008",
		"103007\t\t1\t\t900000000000074008",
		"102002\t\t1\t\t900000000000074008",
	}, "\r\n")+"\r\n", preprocessed)

	transformed, ok := uploads.get("build-6/transformed-files/" + inputName)
	require.True(t, ok)
	assert.Equal(t, strings.Join([]string{
		conceptHeader,
		"101009\t20210131\t1\t900000000000207008\t900000000000074008",
		"103007\t20210131\t1\t900000000000207008\t900000000000074008",
		"102002\t20210131\t1\t900000000000207008\t900000000000074008",
	}, "\r\n")+"\r\n", transformed)

	// All ids arrive through the one bulk job; no per-row requests.
	ids.AssertNumberOfCalls(t, "CreateSCTIDs", 1)
	ids.AssertNotCalled(t, "CreateSCTID", mock.Anything, mock.Anything)
}

func TestTransformFilesCancelledBuildStops(t *testing.T) {
	client := &mocks.Client{}
	client.On("ListObjects", mock.Anything, buildBucket, mock.Anything).
		Return(objectChannel("build-8/input-files/sct2_Concept_Delta_INT_20210131.txt"))

	ids := &idClientMock{}
	service := newTestService(client, ids, Config{})
	build := &Build{ID: "build-8", EffectiveTime: "20210131"}
	build.Cancel()

	err := service.TransformFiles(context.Background(), build)
	var cancelErr *identifier.CancellationError
	require.ErrorAs(t, err, &cancelErr)
	client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ids.AssertNotCalled(t, "CreateSCTIDs", mock.Anything, mock.Anything)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("connection reset")))
	assert.False(t, IsTransient(&rf2table.FormatError{File: "x", Msg: "empty"}))
	assert.False(t, IsTransient(&identifier.CancellationError{}))
	assert.False(t, IsTransient(context.Canceled))
}

func TestEquivalentInternationalFilename(t *testing.T) {
	assert.Equal(t,
		"sct2_Concept_Delta_INT_20210131.txt",
		equivalentInternationalFilename("sct2_Concept_Delta_AU_20210531.txt", "20210131"))
	assert.Equal(t,
		"der2_cRefset_LanguageDelta-en_INT_20210131.txt",
		equivalentInternationalFilename("der2_cRefset_LanguageDelta-en_NZ_20210401.txt", "20210131"))
}
