package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/debemdeboas/posse/internal/config"
	"github.com/debemdeboas/posse/internal/model"
)

// S3Store keeps one JSON document per post under
// {prefix}/{postID}.json. It assumes a single writer process, matching
// the webhook-driven execution model; the mutex serializes the
// read-modify-write cycle within that process.
type S3Store struct { // implements Store
	client *s3.Client
	bucket string
	prefix string

	mu sync.Mutex
}

type s3Document struct {
	Records      map[string]s3Record `json:"records"`
	SnapshotHash string              `json:"snapshot_hash,omitempty"`
	Syndications map[string]string   `json:"syndications,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type s3Record struct {
	Source string                 `json:"source_url"`
	Status model.WebmentionStatus `json:"status"`
	SentAt time.Time              `json:"sent_at"`
}

func NewS3Store(accessKeyID, accessKeySecret, baseEndpoint, region, bucket, prefix string) *S3Store {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		storeLogger.Fatal().Msgf(config.ErrInitializeStoreFmt, err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
	})

	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) key(postID model.PostID) string {
	return s.prefix + "/" + string(postID) + ".json"
}

func (s *S3Store) load(postID model.PostID) (*s3Document, error) {
	out, err := s.client.GetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(postID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return &s3Document{Records: make(map[string]s3Record)}, nil
		}
		return nil, fmt.Errorf("error loading webmention document: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading webmention document: %w", err)
	}

	doc := &s3Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("error decoding webmention document: %w", err)
	}
	if doc.Records == nil {
		doc.Records = make(map[string]s3Record)
	}
	return doc, nil
}

func (s *S3Store) save(postID model.PostID, doc *s3Document) error {
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding webmention document: %w", err)
	}

	_, err = s.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(postID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("error saving webmention document: %w", err)
	}
	return nil
}

func (s *S3Store) Record(postID model.PostID, target, source string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(postID)
	if err != nil {
		return err
	}

	doc.Records[target] = s3Record{
		Source: source,
		Status: model.WebmentionConfirmed,
		SentAt: sentAt.UTC(),
	}
	return s.save(postID, doc)
}

func (s *S3Store) Query(postID model.PostID) ([]model.SentWebmention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(postID)
	if err != nil {
		return nil, err
	}

	var records []model.SentWebmention
	for target, rec := range doc.Records {
		if rec.Status == model.WebmentionRetracted {
			continue
		}
		records = append(records, model.SentWebmention{
			PostID: postID,
			Target: target,
			Source: rec.Source,
			Status: rec.Status,
			SentAt: rec.SentAt,
		})
	}
	return records, nil
}

func (s *S3Store) MarkRetracted(postID model.PostID, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(postID)
	if err != nil {
		return err
	}

	rec, ok := doc.Records[target]
	if !ok {
		return nil
	}
	rec.Status = model.WebmentionRetracted
	doc.Records[target] = rec
	return s.save(postID, doc)
}

func (s *S3Store) DeleteAll(postID model.PostID) ([]model.SentWebmention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(postID)
	if err != nil {
		return nil, err
	}

	var affected []model.SentWebmention
	for target, rec := range doc.Records {
		if rec.Status == model.WebmentionRetracted {
			continue
		}
		affected = append(affected, model.SentWebmention{
			PostID: postID,
			Target: target,
			Source: rec.Source,
			Status: rec.Status,
			SentAt: rec.SentAt,
		})
		rec.Status = model.WebmentionRetracted
		doc.Records[target] = rec
	}

	if len(affected) == 0 {
		return nil, nil
	}
	return affected, s.save(postID, doc)
}

func (s *S3Store) SaveSnapshot(postID model.PostID, body []byte, bodyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(postID)
	if err != nil {
		return err
	}

	// Only the hash is kept remotely; the body itself is not needed
	// for diffing and would bloat the document.
	doc.SnapshotHash = bodyHash
	return s.save(postID, doc)
}

func (s *S3Store) SnapshotHash(postID model.PostID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(postID)
	if err != nil {
		return "", err
	}
	if doc.SnapshotHash == "" {
		return "", ErrSnapshotNotFound
	}
	return doc.SnapshotHash, nil
}

func (s *S3Store) DeleteSnapshot(postID model.PostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(postID)
	if err != nil {
		return err
	}
	if doc.SnapshotHash == "" {
		return nil
	}
	doc.SnapshotHash = ""
	return s.save(postID, doc)
}

func (s *S3Store) RecordSyndication(postID model.PostID, platform, account, remoteURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(postID)
	if err != nil {
		return err
	}
	if doc.Syndications == nil {
		doc.Syndications = make(map[string]string)
	}
	doc.Syndications[platform+"/"+account] = remoteURL
	return s.save(postID, doc)
}

func (s *S3Store) Close() error {
	return nil
}
