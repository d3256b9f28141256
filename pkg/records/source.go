package records

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xuri/excelize/v2"
)

const s3Scheme = "s3://"

// ObjectGetter is the subset of the S3 client used to fetch datasets.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads a dataset from a local CSV or XLSX file or from an S3 object.
type Loader struct {
	Options Options
	// S3 is created from the default AWS configuration on first use when nil.
	S3 ObjectGetter
}

// Load is a convenience for (&Loader{Options: opts}).Load.
func Load(ctx context.Context, source string, opts Options) (*Store, LoadReport, error) {
	return (&Loader{Options: opts}).Load(ctx, source)
}

func (l *Loader) Load(ctx context.Context, source string) (*Store, LoadReport, error) {
	if strings.TrimSpace(source) == "" {
		return nil, LoadReport{}, loadError(source, errors.New("no dataset source configured"))
	}

	var (
		content []byte
		err     error
	)
	if strings.HasPrefix(source, s3Scheme) {
		content, err = l.fetchS3(ctx, source)
	} else {
		content, err = os.ReadFile(filepath.Clean(source))
	}
	if err != nil {
		return nil, LoadReport{Source: source}, loadError(source, err)
	}

	table, err := decodeTable(source, content)
	if err != nil {
		return nil, LoadReport{Source: source}, loadError(source, err)
	}
	return build(source, table, l.Options)
}

// LoadCSV builds a store from CSV content.
func LoadCSV(r io.Reader, opts Options) (*Store, LoadReport, error) {
	table, err := readCSV(r)
	if err != nil {
		return nil, LoadReport{Source: "csv"}, loadError("csv", err)
	}
	return build("csv", table, opts)
}

func decodeTable(source string, content []byte) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(source), ".xlsx") {
		return readXLSX(bytes.NewReader(content))
	}
	return readCSV(bytes.NewReader(content))
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	table, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return table, nil
}

// readXLSX returns the rows of the first sheet.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errEmptySource
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func (l *Loader) fetchS3(ctx context.Context, source string) ([]byte, error) {
	bucket, key, err := splitS3(source)
	if err != nil {
		return nil, err
	}
	if l.S3 == nil {
		client, err := NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		l.S3 = client
	}

	out, err := l.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func splitS3(source string) (string, string, error) {
	rest := strings.TrimPrefix(source, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 source %q", source)
	}
	return bucket, key, nil
}

// NewS3Client builds a path-style S3 client from the default AWS configuration,
// honouring AWS_ENDPOINT_URL for local object stores.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}
