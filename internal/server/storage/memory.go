package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/google/uuid"
)

type memorySession struct {
	fileName    string
	contentType string
	parts       map[int][]byte
}

type memoryObject struct {
	versionID   string
	contentType string
	size        int64
}

// MemoryProvider keeps sessions and objects in process memory. URLs it hands
// out point nowhere; bytes reach it through PutPart. A finished upload with no
// stored parts is accepted as is, otherwise every stored part is checked
// against its SHA-1.
type MemoryProvider struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	objects  map[string][]memoryObject
	now      func() time.Time
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		sessions: make(map[string]*memorySession),
		objects:  make(map[string][]memoryObject),
		now:      time.Now,
	}
}

func newToken() string {
	s, err := common.MakeRandHexString(16)
	if err != nil {
		return uuid.NewString()
	}
	return s
}

func (p *MemoryProvider) GetUploadURL(ctx context.Context) (*UploadTarget, error) {
	return &UploadTarget{
		UploadURL:          "memory://upload/" + objectKey(p.now(), ""),
		AuthorizationToken: newToken(),
	}, nil
}

func (p *MemoryProvider) StartLargeFile(ctx context.Context, fileName, contentType string) (*LargeFile, error) {
	if fileName == "" {
		return nil, common.WrapProvider("start large file", errors.New("file name is empty"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := "mem_" + uuid.NewString()
	key := objectKey(p.now(), fileName)
	p.sessions[id] = &memorySession{fileName: key, contentType: contentType, parts: make(map[int][]byte)}
	return &LargeFile{FileID: id, FileName: key}, nil
}

// GetUploadPartURL ignores partSha1; parts are checked against their bytes
// at finish.
func (p *MemoryProvider) GetUploadPartURL(ctx context.Context, fileID string, partNumber int, partSha1 string) (*UploadTarget, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[fileID]; !ok {
		return nil, common.WrapProvider("get upload part url", fmt.Errorf("%w %q", ErrUploadNotFound, fileID))
	}
	if partNumber < 1 {
		partNumber = 1
	}
	return &UploadTarget{
		UploadURL:          fmt.Sprintf("memory://part/%s/%d", fileID, partNumber),
		AuthorizationToken: newToken(),
	}, nil
}

// PutPart stores the bytes of one part, as a client PUT to a part URL would.
func (p *MemoryProvider) PutPart(fileID string, partNumber int, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[fileID]
	if !ok {
		return common.WrapProvider("upload part", fmt.Errorf("%w %q", ErrUploadNotFound, fileID))
	}
	s.parts[partNumber] = append([]byte(nil), data...)
	return nil
}

func (p *MemoryProvider) FinishLargeFile(ctx context.Context, fileID string, partSha1s []string) (*LargeFile, error) {
	const op = "finish large file"

	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[fileID]
	if !ok {
		return nil, common.WrapProvider(op, fmt.Errorf("%w %q", ErrUploadNotFound, fileID))
	}

	var size int64
	if len(s.parts) > 0 {
		if len(s.parts) != len(partSha1s) {
			return nil, common.WrapProvider(op, fmt.Errorf("expected %d parts, found %d", len(partSha1s), len(s.parts)))
		}
		numbers := make([]int, 0, len(s.parts))
		for n := range s.parts {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)
		for i, n := range numbers {
			if n != i+1 {
				return nil, common.WrapProvider(op, fmt.Errorf("part %d is missing", i+1))
			}
			sum := sha1.Sum(s.parts[n])
			if hex.EncodeToString(sum[:]) != partSha1s[i] {
				return nil, common.WrapProvider(op, fmt.Errorf("sha1 mismatch for part %d", n))
			}
			size += int64(len(s.parts[n]))
		}
	}

	version := "ver_" + uuid.NewString()
	p.objects[s.fileName] = append(p.objects[s.fileName], memoryObject{versionID: version, contentType: s.contentType, size: size})
	delete(p.sessions, fileID)

	return &LargeFile{FileID: version, FileName: s.fileName}, nil
}

func (p *MemoryProvider) CancelLargeFile(ctx context.Context, fileID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[fileID]; !ok {
		return false, common.WrapProvider("cancel large file", fmt.Errorf("%w %q", ErrUploadNotFound, fileID))
	}
	delete(p.sessions, fileID)
	return true, nil
}

func (p *MemoryProvider) GetDownloadAuthorization(ctx context.Context, fileName string, validFor time.Duration) (*DownloadAuthorization, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.objects[fileName]) == 0 {
		return nil, common.WrapProvider("get download authorization", fmt.Errorf("file not present: %s", fileName))
	}
	return &DownloadAuthorization{
		AuthorizationToken: newToken(),
		DownloadURL:        "memory://file/" + fileName,
	}, nil
}

func (p *MemoryProvider) DeleteFileVersion(ctx context.Context, fileID, fileName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	versions := p.objects[fileName]
	for i, v := range versions {
		if v.versionID == fileID {
			versions = append(versions[:i], versions[i+1:]...)
			if len(versions) == 0 {
				delete(p.objects, fileName)
			} else {
				p.objects[fileName] = versions
			}
			return nil
		}
	}
	return common.WrapProvider("delete file version", fmt.Errorf("file not present: %s %s", fileName, fileID))
}

// HasObject reports whether any version of fileName exists.
func (p *MemoryProvider) HasObject(fileName string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.objects[fileName]) > 0
}

// ObjectSize returns the size of the latest version of fileName.
func (p *MemoryProvider) ObjectSize(fileName string) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	versions := p.objects[fileName]
	if len(versions) == 0 {
		return 0, false
	}
	return versions[len(versions)-1].size, true
}

// ActiveSessions returns the number of unfinished multipart uploads.
func (p *MemoryProvider) ActiveSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
