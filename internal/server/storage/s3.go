package storage

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/tenantdrive/internal/common"
	sc "github.com/dmitrijs2005/tenantdrive/internal/server/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
)

// s3API is the part of *s3.Client the provider calls.
type s3API interface {
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	ListParts(ctx context.Context, in *s3.ListPartsInput, optFns ...func(*s3.Options)) (*s3.ListPartsOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presignAPI is the part of *s3.PresignClient the provider calls.
type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignUploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Provider talks to Backblaze B2 through its S3-compatible endpoint.
//
// A multipart upload is addressed by both object key and upload id, so the
// fileId handed to clients packs the two together. Uploaded parts carry a
// SHA-1 checksum, which FinishLargeFile compares against the caller's list.
// Issued URLs are presigned; their signature doubles as the authorization token.
type S3Provider struct {
	client        s3API
	presign       presignAPI
	bucket        string
	presignExpiry time.Duration
	now           func() time.Time
}

// NewS3Provider builds a provider from static credentials in cfg.
func NewS3Provider(ctx context.Context, cfg *sc.Config) (*S3Provider, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return newS3Provider(client, newS3PresignClient(client), cfg.S3Bucket, cfg.PresignExpiry), nil
}

func newS3Provider(client s3API, presign presignAPI, bucket string, expiry time.Duration) *S3Provider {
	return &S3Provider{
		client:        client,
		presign:       presign,
		bucket:        bucket,
		presignExpiry: expiry,
		now:           time.Now,
	}
}

type multipartRef struct {
	Key      string `json:"k"`
	UploadID string `json:"u"`
}

func encodeFileID(key, uploadID string) string {
	b, _ := json.Marshal(multipartRef{Key: key, UploadID: uploadID})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeFileID(fileID string) (*multipartRef, error) {
	b, err := base64.RawURLEncoding.DecodeString(fileID)
	if err != nil {
		return nil, fmt.Errorf("unknown file id %q", fileID)
	}
	ref := &multipartRef{}
	if err := json.Unmarshal(b, ref); err != nil || ref.Key == "" || ref.UploadID == "" {
		return nil, fmt.Errorf("unknown file id %q", fileID)
	}
	return ref, nil
}

func (p *S3Provider) target(req *v4.PresignedHTTPRequest) *UploadTarget {
	t := &UploadTarget{UploadURL: req.URL, AuthorizationToken: signatureOf(req.URL)}
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "Host") || len(values) == 0 {
			continue
		}
		if t.Headers == nil {
			t.Headers = make(map[string]string)
		}
		t.Headers[http.CanonicalHeaderKey(name)] = values[0]
	}
	return t
}

// signatureOf extracts X-Amz-Signature from a presigned URL.
func signatureOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("X-Amz-Signature")
}

func (p *S3Provider) GetUploadURL(ctx context.Context) (*UploadTarget, error) {
	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(objectKey(p.now(), "")),
	}, s3.WithPresignExpires(p.presignExpiry))
	if err != nil {
		return nil, common.WrapProvider("get upload url", err)
	}
	return p.target(req), nil
}

func (p *S3Provider) StartLargeFile(ctx context.Context, fileName, contentType string) (*LargeFile, error) {
	key := objectKey(p.now(), fileName)

	in := &s3.CreateMultipartUploadInput{
		Bucket:            aws.String(p.bucket),
		Key:               aws.String(key),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha1,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := p.client.CreateMultipartUpload(ctx, in)
	if err != nil {
		return nil, common.WrapProvider("start large file", err)
	}

	return &LargeFile{
		FileID:   encodeFileID(key, aws.ToString(out.UploadId)),
		FileName: key,
	}, nil
}

// GetUploadPartURL signs the part's SHA-1 into the URL, so the PUT must carry
// it in the returned headers and the stored part records it.
func (p *S3Provider) GetUploadPartURL(ctx context.Context, fileID string, partNumber int, partSha1 string) (*UploadTarget, error) {
	const op = "get upload part url"

	ref, err := decodeFileID(fileID)
	if err != nil {
		return nil, common.WrapProvider(op, err)
	}
	if partNumber < 1 {
		partNumber = 1
	}
	if partSha1 == "" {
		return nil, common.WrapProvider(op, errors.New("part sha1 is required"))
	}
	digest, err := sha1Base64(partSha1)
	if err != nil {
		return nil, common.WrapProvider(op, err)
	}

	req, err := p.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(ref.Key),
		UploadId:     aws.String(ref.UploadID),
		PartNumber:   aws.Int32(int32(partNumber)),
		ChecksumSHA1: aws.String(digest),
	}, s3.WithPresignExpires(p.presignExpiry))
	if err != nil {
		return nil, common.WrapProvider(op, err)
	}
	return p.target(req), nil
}

// FinishLargeFile assembles the parts in order. The uploaded part count and
// each part's recorded SHA-1 must match partSha1s, which holds hex digests. A
// part stored without a checksum fails the call.
func (p *S3Provider) FinishLargeFile(ctx context.Context, fileID string, partSha1s []string) (*LargeFile, error) {
	const op = "finish large file"

	ref, err := decodeFileID(fileID)
	if err != nil {
		return nil, common.WrapProvider(op, err)
	}

	uploaded, err := p.listParts(ctx, ref)
	if err != nil {
		return nil, common.WrapProvider(op, err)
	}
	if len(uploaded) != len(partSha1s) {
		return nil, common.WrapProvider(op, fmt.Errorf("expected %d parts, found %d", len(partSha1s), len(uploaded)))
	}

	completed := make([]types.CompletedPart, 0, len(uploaded))
	for i, part := range uploaded {
		number := aws.ToInt32(part.PartNumber)
		if int(number) != i+1 {
			return nil, common.WrapProvider(op, fmt.Errorf("part %d is missing", i+1))
		}

		digest, err := sha1Base64(partSha1s[i])
		if err != nil {
			return nil, common.WrapProvider(op, fmt.Errorf("part %d: %w", number, err))
		}
		got := aws.ToString(part.ChecksumSHA1)
		if got == "" {
			return nil, common.WrapProvider(op, fmt.Errorf("part %d has no recorded sha1", number))
		}
		if got != digest {
			return nil, common.WrapProvider(op, fmt.Errorf("sha1 mismatch for part %d", number))
		}

		completed = append(completed, types.CompletedPart{
			ETag:         part.ETag,
			PartNumber:   part.PartNumber,
			ChecksumSHA1: aws.String(digest),
		})
	}

	out, err := p.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(p.bucket),
		Key:             aws.String(ref.Key),
		UploadId:        aws.String(ref.UploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return nil, common.WrapProvider(op, err)
	}

	id := aws.ToString(out.VersionId)
	if id == "" {
		id = ref.Key
	}
	return &LargeFile{FileID: id, FileName: ref.Key}, nil
}

func (p *S3Provider) listParts(ctx context.Context, ref *multipartRef) ([]types.Part, error) {
	var parts []types.Part
	paginator := s3.NewListPartsPaginator(p.client, &s3.ListPartsInput{
		Bucket:   aws.String(p.bucket),
		Key:      aws.String(ref.Key),
		UploadId: aws.String(ref.UploadID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		parts = append(parts, page.Parts...)
	}
	return parts, nil
}

func sha1Base64(hexDigest string) (string, error) {
	raw, err := hex.DecodeString(hexDigest)
	if err != nil || len(raw) != 20 {
		return "", errors.New("malformed sha1")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (p *S3Provider) CancelLargeFile(ctx context.Context, fileID string) (bool, error) {
	ref, err := decodeFileID(fileID)
	if err != nil {
		return false, common.WrapProvider("cancel large file", err)
	}

	_, err = p.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(p.bucket),
		Key:      aws.String(ref.Key),
		UploadId: aws.String(ref.UploadID),
	})
	var noSuchUpload *types.NoSuchUpload
	if errors.As(err, &noSuchUpload) {
		return false, common.WrapProvider("cancel large file", fmt.Errorf("%w: %w", ErrUploadNotFound, err))
	}
	if err != nil {
		return false, common.WrapProvider("cancel large file", err)
	}
	return true, nil
}

func (p *S3Provider) GetDownloadAuthorization(ctx context.Context, fileName string, validFor time.Duration) (*DownloadAuthorization, error) {
	if validFor <= 0 {
		validFor = p.presignExpiry
	}

	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(fileName),
	}, s3.WithPresignExpires(validFor))
	if err != nil {
		return nil, common.WrapProvider("get download authorization", err)
	}
	return &DownloadAuthorization{AuthorizationToken: signatureOf(req.URL), DownloadURL: req.URL}, nil
}

// DeleteFileVersion removes one version of fileName. When fileID equals the
// name the bucket is unversioned and the object itself is deleted.
func (p *S3Provider) DeleteFileVersion(ctx context.Context, fileID, fileName string) error {
	in := &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(fileName),
	}
	if fileID != "" && fileID != fileName {
		in.VersionId = aws.String(fileID)
	}

	if _, err := p.client.DeleteObject(ctx, in); err != nil {
		return common.WrapProvider("delete file version", err)
	}
	return nil
}
