package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/config"
	"github.com/secrypt/secrypt/internal/server/repositories/repomanager"
	"github.com/secrypt/secrypt/internal/shared"
)

// suspiciousActivityThreshold is the failed-attempt count per (ip,
// identity) at which the security report flags a source.
const suspiciousActivityThreshold = 5

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// AttachmentService manages file metadata, upload lifecycle, presigned
// URLs, and the access audit trail. The bytes themselves live in
// S3-compatible object storage.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
}

func NewAttachmentService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AttachmentService {
	return &AttachmentService{db: db, repomanager: m, config: cfg}
}

func (s *AttachmentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// storageKey places objects under a per-day prefix.
func storageKey(attachmentID, filename string) string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%02d/%02d/%s/%s", d.Year(), d.Month(), d.Day(), attachmentID, filename)
}

// AccessContext carries the request-source details stamped on audit rows.
type AccessContext struct {
	IPAddress string
	UserAgent string
}

// CreateParams are the caller-supplied fields of a new upload.
type CreateParams struct {
	OriginalName string
	MimeType     string
	Size         int64
	IsEncrypted  bool
	ExpiresAt    *time.Time
	Metadata     chat.AttachmentMetadata
}

// Create registers an upload and returns the attachment in the uploading
// state plus a presigned PUT URL for the client to push the bytes to. The
// metadata row and the upload audit entry are written in one transaction.
// An empty S3 endpoint disables presigning and returns an empty URL.
func (s *AttachmentService) Create(ctx context.Context, uploaderID string, params CreateParams, access AccessContext) (*chat.Attachment, string, error) {
	if params.OriginalName == "" {
		return nil, "", chat.NewValidation("original_name", "must not be empty")
	}
	if !chat.AllowedExtension(params.OriginalName) {
		return nil, "", chat.NewValidation("original_name", "file type is not allowed")
	}
	if params.Size <= 0 || params.Size > chat.MaxAttachmentSize {
		return nil, "", chat.NewValidation("size", "must be between 1 byte and 1 GiB")
	}

	now := time.Now()
	id := uuid.New().String()
	filename := id + strings.ToLower(filepath.Ext(params.OriginalName))

	attachment := &chat.Attachment{
		ID:           id,
		Filename:     filename,
		OriginalName: params.OriginalName,
		MimeType:     params.MimeType,
		Size:         params.Size,
		UploadedBy:   uploaderID,
		IsEncrypted:  params.IsEncrypted,
		StoragePath:  storageKey(id, filename),
		Status:       chat.AttachmentUploading,
		Metadata:     params.Metadata,
		ExpiresAt:    params.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if params.IsEncrypted {
		keyHash, err := shared.MakeRandHexString(32)
		if err != nil {
			return nil, "", chat.NewStorage(err)
		}
		attachment.EncryptionKeyHash = keyHash
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Attachments(tx).Create(ctx, attachment); err != nil {
			return err
		}
		return s.repomanager.AccessLogs(tx).Create(ctx, s.newAccessLog(attachment.ID, uploaderID, chat.AccessUpload, chat.AccessSuccess, "", access, now))
	})
	if err != nil {
		return nil, "", storageErr(err)
	}

	url, err := s.presignPut(ctx, attachment.StoragePath)
	if err != nil {
		return nil, "", chat.NewStorage(err)
	}

	return attachment, url, nil
}

// Complete marks an upload finished. Only the uploader may complete it,
// and only from the uploading state.
func (s *AttachmentService) Complete(ctx context.Context, attachmentID, uploaderID string) error {
	return s.finishUpload(ctx, attachmentID, uploaderID, chat.AttachmentCompleted)
}

// Fail marks an upload as failed. Failed attachments can never be
// completed afterwards.
func (s *AttachmentService) Fail(ctx context.Context, attachmentID, uploaderID string) error {
	return s.finishUpload(ctx, attachmentID, uploaderID, chat.AttachmentFailed)
}

func (s *AttachmentService) finishUpload(ctx context.Context, attachmentID, uploaderID string, status chat.AttachmentStatus) error {
	attachment, err := s.repomanager.Attachments(s.db).GetByID(ctx, attachmentID)
	if err != nil {
		return storageErr(err)
	}
	if attachment.UploadedBy != uploaderID {
		return chat.NewPermission("only the uploader can finish an upload")
	}
	if attachment.Status != chat.AttachmentUploading {
		return chat.NewConflict("upload is not in progress")
	}
	if err := s.repomanager.Attachments(s.db).SetStatus(ctx, attachmentID, status); err != nil {
		return storageErr(err)
	}
	return nil
}

// SoftDelete hides an attachment from read paths. Only the uploader may
// delete; a delete audit row is written in the same transaction. Deleting
// twice conflicts.
func (s *AttachmentService) SoftDelete(ctx context.Context, attachmentID, actorID string, access AccessContext) error {
	attachment, err := s.repomanager.Attachments(s.db).GetByID(ctx, attachmentID)
	if err != nil {
		return storageErr(err)
	}
	if attachment.UploadedBy != actorID {
		return chat.NewPermission("only the uploader can delete an attachment")
	}
	if attachment.IsDeleted {
		return chat.NewConflict("attachment is already deleted")
	}

	now := time.Now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Attachments(tx).MarkDeleted(ctx, attachmentID, now); err != nil {
			return err
		}
		return s.repomanager.AccessLogs(tx).Create(ctx, s.newAccessLog(attachmentID, actorID, chat.AccessDelete, chat.AccessSuccess, "", access, now))
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// Get returns the redacted view of one attachment. Deleted attachments
// come back as markers, never as NotFound.
func (s *AttachmentService) Get(ctx context.Context, attachmentID string) (*chat.Attachment, error) {
	attachment, err := s.repomanager.Attachments(s.db).GetByID(ctx, attachmentID)
	if err != nil {
		return nil, storageErr(err)
	}
	return attachment.Redacted(), nil
}

// DownloadURL checks the attachment is live, audits the access, bumps the
// download counter, and returns a presigned GET URL. Failed checks are
// audited too, with the failure reason.
func (s *AttachmentService) DownloadURL(ctx context.Context, attachmentID, identityID string, access AccessContext) (string, error) {
	attachment, err := s.repomanager.Attachments(s.db).GetByID(ctx, attachmentID)
	if err != nil {
		return "", storageErr(err)
	}

	if reason := downloadBlockReason(attachment, time.Now()); reason != "" {
		if logErr := s.repomanager.AccessLogs(s.db).Create(ctx, s.newAccessLog(attachmentID, identityID, chat.AccessDownload, chat.AccessFailed, reason, access, time.Now())); logErr != nil {
			return "", storageErr(logErr)
		}
		return "", chat.NewConflict(reason)
	}

	now := time.Now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Attachments(tx).IncrementDownloadCount(ctx, attachmentID); err != nil {
			return err
		}
		return s.repomanager.AccessLogs(tx).Create(ctx, s.newAccessLog(attachmentID, identityID, chat.AccessDownload, chat.AccessSuccess, "", access, now))
	})
	if err != nil {
		return "", storageErr(err)
	}

	url, err := s.presignGet(ctx, attachment.StoragePath)
	if err != nil {
		return "", chat.NewStorage(err)
	}
	return url, nil
}

func downloadBlockReason(a *chat.Attachment, now time.Time) string {
	switch {
	case a.IsDeleted:
		return "attachment is deleted"
	case a.Status != chat.AttachmentCompleted:
		return "attachment upload is not complete"
	case a.IsExpired(now):
		return "attachment has expired"
	}
	return ""
}

// RecordAccess appends one audit row for an access attempt the service did
// not mediate itself, such as a client-side decrypt.
func (s *AttachmentService) RecordAccess(ctx context.Context, attachmentID, identityID string, action chat.AccessAction, status chat.AccessStatus, errorMessage string, access AccessContext) error {
	if !action.Valid() {
		return chat.NewValidation("action", "unknown access action")
	}
	if _, err := s.repomanager.Attachments(s.db).GetByID(ctx, attachmentID); err != nil {
		return storageErr(err)
	}
	if err := s.repomanager.AccessLogs(s.db).Create(ctx, s.newAccessLog(attachmentID, identityID, action, status, errorMessage, access, time.Now())); err != nil {
		return storageErr(err)
	}
	return nil
}

// AccessHistory lists the newest audit rows for one attachment. Only the
// uploader may read them.
func (s *AttachmentService) AccessHistory(ctx context.Context, attachmentID, actorID string, limit int) ([]*chat.AccessLog, error) {
	attachment, err := s.repomanager.Attachments(s.db).GetByID(ctx, attachmentID)
	if err != nil {
		return nil, storageErr(err)
	}
	if attachment.UploadedBy != actorID {
		return nil, chat.NewPermission("only the uploader can read the access history")
	}
	out, err := s.repomanager.AccessLogs(s.db).ListByAttachment(ctx, attachmentID, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// SuspiciousActivity aggregates repeated failed accesses per (ip,
// identity) over the given window.
func (s *AttachmentService) SuspiciousActivity(ctx context.Context, window time.Duration) ([]chat.SuspiciousActivity, error) {
	out, err := s.repomanager.AccessLogs(s.db).SuspiciousActivity(ctx, time.Now().Add(-window), suspiciousActivityThreshold)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// CleanupExpired soft-deletes attachments past their expiry. Called by the
// periodic sweep.
func (s *AttachmentService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Attachments(s.db).SoftDeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

// CleanupAccessLogs purges audit rows older than the retention cutoff.
// Called by the periodic sweep.
func (s *AttachmentService) CleanupAccessLogs(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repomanager.AccessLogs(s.db).DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (s *AttachmentService) newAccessLog(attachmentID, identityID string, action chat.AccessAction, status chat.AccessStatus, errorMessage string, access AccessContext, now time.Time) *chat.AccessLog {
	return &chat.AccessLog{
		ID:            uuid.New().String(),
		AttachmentID:  attachmentID,
		IdentityID:    identityID,
		Action:        action,
		IPAddress:     access.IPAddress,
		UserAgent:     access.UserAgent,
		Status:        status,
		ErrorMessage:  errorMessage,
		SecurityLevel: chat.DetermineSecurityLevel(action, access.IPAddress),
		CreatedAt:     now,
	}
}

func (s *AttachmentService) presignPut(ctx context.Context, key string) (string, error) {
	if s.config.S3BaseEndpoint == "" {
		return "", nil
	}
	pc, err := s.getPresignClient()
	if err != nil {
		return "", err
	}
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *AttachmentService) presignGet(ctx context.Context, key string) (string, error) {
	if s.config.S3BaseEndpoint == "" {
		return "", nil
	}
	pc, err := s.getPresignClient()
	if err != nil {
		return "", err
	}
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
