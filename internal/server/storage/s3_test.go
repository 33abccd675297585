package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/tenantdrive/internal/common"
	sc "github.com/dmitrijs2005/tenantdrive/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	created   *s3.CreateMultipartUploadInput
	parts     []types.Part
	listErr   error
	completed *s3.CompleteMultipartUploadInput
	version   string
	aborted   *s3.AbortMultipartUploadInput
	abortErr  error
	deleted   *s3.DeleteObjectInput
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.created = in
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("up-1")}, nil
}

func (f *fakeS3) ListParts(ctx context.Context, in *s3.ListPartsInput, _ ...func(*s3.Options)) (*s3.ListPartsOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &s3.ListPartsOutput{Parts: f.parts, IsTruncated: aws.Bool(false)}, nil
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.completed = in
	out := &s3.CompleteMultipartUploadOutput{Key: in.Key}
	if f.version != "" {
		out.VersionId = aws.String(f.version)
	}
	return out, nil
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.aborted = in
	if f.abortErr != nil {
		return nil, f.abortErr
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = in
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	part    *s3.UploadPartInput
	get     *s3.GetObjectInput
	put     *s3.PutObjectInput
	failure error
}

func presigned(key string) *v4.PresignedHTTPRequest {
	return &v4.PresignedHTTPRequest{
		URL:    "https://s3.us-west-004.backblazeb2.com/bucket/" + key + "?X-Amz-Signature=sig123",
		Method: "PUT",
	}
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.put = in
	if f.failure != nil {
		return nil, f.failure
	}
	return presigned(aws.ToString(in.Key)), nil
}

func (f *fakePresigner) PresignUploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.part = in
	if f.failure != nil {
		return nil, f.failure
	}
	req := presigned(aws.ToString(in.Key))
	req.SignedHeader = http.Header{"Host": {"s3.us-west-004.backblazeb2.com"}}
	if in.ChecksumSHA1 != nil {
		req.SignedHeader.Set("x-amz-checksum-sha1", aws.ToString(in.ChecksumSHA1))
	}
	return req, nil
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.get = in
	if f.failure != nil {
		return nil, f.failure
	}
	return presigned(aws.ToString(in.Key)), nil
}

func newTestS3Provider() (*S3Provider, *fakeS3, *fakePresigner) {
	api := &fakeS3{}
	pre := &fakePresigner{}
	p := newS3Provider(api, pre, "bucket", 15*time.Minute)
	p.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p, api, pre
}

// sha1 of "a" and "b".
const (
	sha1A = "86f7e437faa5a7fce15d1ddcb9eaeaea377667b8"
	sha1B = "e9d71f5ee7c92d6dc9e92ffdad17b8bd49418f98"
)

func b64(t *testing.T, hexDigest string) string {
	t.Helper()
	s, err := sha1Base64(hexDigest)
	require.NoError(t, err)
	return s
}

func TestS3Provider_StartAndPartURL(t *testing.T) {
	ctx := context.Background()
	p, api, pre := newTestS3Provider()

	lf, err := p.StartLargeFile(ctx, "big.iso", "application/x-iso9660-image")
	require.NoError(t, err)
	assert.Regexp(t, `^uploads/2025/01/02/[0-9a-f-]{36}/big\.iso$`, lf.FileName)
	assert.Equal(t, types.ChecksumAlgorithmSha1, api.created.ChecksumAlgorithm)
	assert.Equal(t, "application/x-iso9660-image", aws.ToString(api.created.ContentType))

	ref, err := decodeFileID(lf.FileID)
	require.NoError(t, err)
	assert.Equal(t, lf.FileName, ref.Key)
	assert.Equal(t, "up-1", ref.UploadID)

	target, err := p.GetUploadPartURL(ctx, lf.FileID, 0, sha1A)
	require.NoError(t, err)
	assert.Equal(t, "sig123", target.AuthorizationToken)
	assert.Equal(t, int32(1), aws.ToInt32(pre.part.PartNumber))
	assert.Equal(t, "up-1", aws.ToString(pre.part.UploadId))
	assert.Equal(t, b64(t, sha1A), aws.ToString(pre.part.ChecksumSHA1))
	assert.Equal(t, map[string]string{"X-Amz-Checksum-Sha1": b64(t, sha1A)}, target.Headers)

	_, err = p.GetUploadPartURL(ctx, lf.FileID, 2, sha1B)
	require.NoError(t, err)
	assert.Equal(t, int32(2), aws.ToInt32(pre.part.PartNumber))
	assert.Equal(t, b64(t, sha1B), aws.ToString(pre.part.ChecksumSHA1))
}

func TestS3Provider_PartURLNeedsChecksum(t *testing.T) {
	ctx := context.Background()
	p, _, pre := newTestS3Provider()
	fileID := encodeFileID("uploads/k", "up-1")

	_, err := p.GetUploadPartURL(ctx, fileID, 1, "")
	assert.ErrorIs(t, err, common.ErrorStorageProvider)
	assert.Contains(t, err.Error(), "part sha1 is required")

	_, err = p.GetUploadPartURL(ctx, fileID, 1, "zz")
	assert.ErrorIs(t, err, common.ErrorStorageProvider)
	assert.Contains(t, err.Error(), "malformed sha1")
	assert.Nil(t, pre.part, "nothing is signed without a digest")
}

func TestS3Provider_FinishCompletesInOrder(t *testing.T) {
	ctx := context.Background()
	p, api, _ := newTestS3Provider()
	api.version = "4_zversion"
	api.parts = []types.Part{
		{PartNumber: aws.Int32(1), ETag: aws.String("e1"), ChecksumSHA1: aws.String(b64(t, sha1A))},
		{PartNumber: aws.Int32(2), ETag: aws.String("e2"), ChecksumSHA1: aws.String(b64(t, sha1B))},
	}

	fileID := encodeFileID("uploads/k", "up-1")
	lf, err := p.FinishLargeFile(ctx, fileID, []string{sha1A, sha1B})
	require.NoError(t, err)
	assert.Equal(t, "4_zversion", lf.FileID)
	assert.Equal(t, "uploads/k", lf.FileName)

	require.Len(t, api.completed.MultipartUpload.Parts, 2)
	assert.Equal(t, "e2", aws.ToString(api.completed.MultipartUpload.Parts[1].ETag))
	assert.Equal(t, b64(t, sha1B), aws.ToString(api.completed.MultipartUpload.Parts[1].ChecksumSHA1))
}

func TestS3Provider_FinishWithoutVersioningUsesKey(t *testing.T) {
	p, api, _ := newTestS3Provider()
	api.parts = []types.Part{{PartNumber: aws.Int32(1), ETag: aws.String("e1"), ChecksumSHA1: aws.String(b64(t, sha1A))}}

	lf, err := p.FinishLargeFile(context.Background(), encodeFileID("uploads/k", "up-1"), []string{sha1A})
	require.NoError(t, err)
	assert.Equal(t, "uploads/k", lf.FileID)
}

func TestS3Provider_FinishErrors(t *testing.T) {
	tests := []struct {
		name   string
		parts  []types.Part
		list   error
		sha1s  []string
		fileID string
		msg    string
	}{
		{
			name:   "bad file id",
			fileID: "%%%",
			sha1s:  []string{sha1A},
			msg:    "unknown file id",
		},
		{
			name:  "count mismatch",
			parts: []types.Part{{PartNumber: aws.Int32(1)}},
			sha1s: []string{sha1A, sha1B},
			msg:   "expected 2 parts, found 1",
		},
		{
			name:  "gap",
			parts: []types.Part{{PartNumber: aws.Int32(1), ChecksumSHA1: aws.String(b64(t, sha1A))}, {PartNumber: aws.Int32(3)}},
			sha1s: []string{sha1A, sha1B},
			msg:   "part 2 is missing",
		},
		{
			name:  "part stored without checksum",
			parts: []types.Part{{PartNumber: aws.Int32(1), ETag: aws.String("e1")}},
			sha1s: []string{sha1A},
			msg:   "part 1 has no recorded sha1",
		},
		{
			name: "wrong digest for checksumless part",
			parts: []types.Part{
				{PartNumber: aws.Int32(1), ETag: aws.String("e1"), ChecksumSHA1: aws.String(b64(t, sha1A))},
				{PartNumber: aws.Int32(2), ETag: aws.String("e2")},
			},
			sha1s: []string{sha1A, "0000000000000000000000000000000000000000"},
			msg:   "part 2 has no recorded sha1",
		},
		{
			name:  "checksum mismatch",
			parts: []types.Part{{PartNumber: aws.Int32(1), ChecksumSHA1: aws.String(base64.StdEncoding.EncodeToString(make([]byte, 20)))}},
			sha1s: []string{sha1A},
			msg:   "sha1 mismatch for part 1",
		},
		{
			name:  "malformed sha1",
			parts: []types.Part{{PartNumber: aws.Int32(1)}},
			sha1s: []string{"zz"},
			msg:   "malformed sha1",
		},
		{
			name:  "list fails",
			list:  errors.New("NoSuchUpload: The specified upload does not exist"),
			sha1s: []string{sha1A},
			msg:   "NoSuchUpload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, api, _ := newTestS3Provider()
			api.parts = tt.parts
			api.listErr = tt.list
			fileID := tt.fileID
			if fileID == "" {
				fileID = encodeFileID("uploads/k", "up-1")
			}

			_, err := p.FinishLargeFile(context.Background(), fileID, tt.sha1s)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrorStorageProvider)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Nil(t, api.completed)
		})
	}
}

func TestS3Provider_Cancel(t *testing.T) {
	ctx := context.Background()
	p, api, _ := newTestS3Provider()

	ok, err := p.CancelLargeFile(ctx, encodeFileID("uploads/k", "up-1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "up-1", aws.ToString(api.aborted.UploadId))

	api.abortErr = &types.NoSuchUpload{}
	_, err = p.CancelLargeFile(ctx, encodeFileID("uploads/k", "up-1"))
	assert.ErrorIs(t, err, common.ErrorStorageProvider)

	assert.ErrorIs(t, err, ErrUploadNotFound)
	var noSuchUpload *types.NoSuchUpload
	assert.ErrorAs(t, err, &noSuchUpload)

	api.abortErr = errors.New("dial tcp: i/o timeout")
	_, err = p.CancelLargeFile(ctx, encodeFileID("uploads/k", "up-1"))
	assert.ErrorIs(t, err, common.ErrorStorageProvider)
	assert.NotErrorIs(t, err, ErrUploadNotFound)

	_, err = p.CancelLargeFile(ctx, "never-started")
	assert.ErrorIs(t, err, common.ErrorStorageProvider)
}

func TestS3Provider_DeleteFileVersion(t *testing.T) {
	ctx := context.Background()
	p, api, _ := newTestS3Provider()

	require.NoError(t, p.DeleteFileVersion(ctx, "4_zversion", "uploads/k"))
	assert.Equal(t, "uploads/k", aws.ToString(api.deleted.Key))
	assert.Equal(t, "4_zversion", aws.ToString(api.deleted.VersionId))

	require.NoError(t, p.DeleteFileVersion(ctx, "uploads/k", "uploads/k"))
	assert.Nil(t, api.deleted.VersionId)
}

func TestS3Provider_PresignedURLs(t *testing.T) {
	ctx := context.Background()
	p, _, pre := newTestS3Provider()

	up, err := p.GetUploadURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sig123", up.AuthorizationToken)
	assert.Regexp(t, `^uploads/2025/01/02/`, aws.ToString(pre.put.Key))

	dl, err := p.GetDownloadAuthorization(ctx, "uploads/k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "sig123", dl.AuthorizationToken)
	assert.Contains(t, dl.DownloadURL, "uploads/k")
	assert.Equal(t, "uploads/k", aws.ToString(pre.get.Key))

	pre.failure = errors.New("signing failed")
	_, err = p.GetUploadURL(ctx)
	assert.ErrorIs(t, err, common.ErrorStorageProvider)
	_, err = p.GetDownloadAuthorization(ctx, "uploads/k", 0)
	assert.ErrorIs(t, err, common.ErrorStorageProvider)
}

func TestNewS3Provider_Seams(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	cfg := &sc.Config{
		S3Region:       "us-west-004",
		S3AccessKeyID:  "key",
		S3BaseEndpoint: "https://s3.us-west-004.backblazeb2.com",
		S3UsePathStyle: true,
		S3Bucket:       "files",
		PresignExpiry:  time.Minute,
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-west-004", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}

	p, err := NewS3Provider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "files", p.bucket)
	assert.Equal(t, time.Minute, p.presignExpiry)
	assert.Equal(t, "https://s3.us-west-004.backblazeb2.com", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Provider(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load-fail")
}

func TestNew_SelectsBackend(t *testing.T) {
	p, err := New(context.Background(), &sc.Config{StorageType: sc.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryProvider{}, p)

	_, err = New(context.Background(), &sc.Config{StorageType: "ftp"})
	require.Error(t, err)
}
