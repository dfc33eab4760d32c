// Copyright 2025 Inferaflow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package s3 provides a blob.Store backed by any S3-compatible object
// store (AWS S3, MinIO, Yandex Object Storage).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/inferaflow/docustore/blob"
)

const connectTimeout = 30 * time.Second

// Config holds connection settings for an S3-compatible store.
type Config struct {
	// Endpoint is the service URL. Leave empty for AWS S3 proper.
	Endpoint string

	// Region is the bucket region.
	Region string

	// AccessKeyID and SecretAccessKey authenticate the client.
	AccessKeyID     string
	SecretAccessKey string

	// Bucket is the bucket holding document payloads.
	Bucket string

	// UsePathStyle forces path-style addressing, required by MinIO.
	UsePathStyle bool
}

// Client implements blob.Store over an S3-compatible object store.
type Client struct {
	client  *awss3.Client
	presign *awss3.PresignClient
	bucket  string
}

// NewClient creates a Client and verifies the bucket is reachable.
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, errors.New("configuration is required")
	}
	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, errors.New("accessKeyID, secretAccessKey, and bucket are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	opts := awss3.Options{
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
		UsePathStyle:     conf.UsePathStyle,
	}
	if conf.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conf.Endpoint)
	}
	client := awss3.New(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	_, err := client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return &Client{
		client:  client,
		presign: awss3.NewPresignClient(client),
		bucket:  conf.Bucket,
	}, nil
}

func (c *Client) Put(ctx context.Context, key string, data io.Reader) error {
	_, err := c.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := c.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%q: %w", key, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return result.Body, nil
}

func (c *Client) Stat(ctx context.Context, key string) (*blob.ObjectInfo, error) {
	result, err := c.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%q: %w", key, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	info := &blob.ObjectInfo{Key: key}
	if result.ContentLength != nil {
		info.Size = *result.ContentLength
	}
	if result.ContentType != nil {
		info.ContentType = *result.ContentType
	}
	return info, nil
}

func (c *Client) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := c.client.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(c.bucket + "/" + srcKey),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%q: %w", srcKey, blob.ErrNotFound)
		}
		return fmt.Errorf("failed to copy object %s to %s: %w", srcKey, dstKey, err)
	}
	return nil
}

func (c *Client) Remove(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (c *Client) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	request, err := c.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return request.URL, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
