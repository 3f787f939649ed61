package samples

import (
	"context"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/adapters/objectstore"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
)

type listOptions struct {
	Store  objectstore.Config
	Bucket string `param:"params.bucket_name" validate:"required"`
	Prefix string `param:"params.path"`
}

// ListMinioFiles lists the objects of params.bucket_name under params.path
// into params.minio_objects.
type ListMinioFiles struct {
	deps Deps
	opts listOptions
}

func (c *ListMinioFiles) Name() string { return KindListMinioFiles }

func (c *ListMinioFiles) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.output.params",
		"systems.minio.endpoint", "systems.minio.access_key", "systems.minio.secret_key",
		"params.bucket_name"); err != nil {
		return err
	}
	useSSL, err := ec.InputBool("systems.minio.secure", false)
	if err != nil {
		return err
	}
	c.opts = listOptions{
		Store: objectstore.Config{
			Endpoint:  ec.InputString("systems.minio.endpoint", ""),
			AccessKey: ec.InputString("systems.minio.access_key", ""),
			SecretKey: ec.InputString("systems.minio.secret_key", ""),
			Region:    ec.InputString("systems.minio.region", ""),
			UseSSL:    useSSL,
		},
		Bucket: ec.InputString("params.bucket_name", ""),
		Prefix: ec.InputString("params.path", ""),
	}
	if err := c.opts.Store.Validate(); err != nil {
		return err
	}
	return checkOptions(c.opts)
}

func (c *ListMinioFiles) Execute(ctx context.Context, ec *execctx.Context) (command.Result, error) {
	ec.Logger().Info("listing bucket objects", "bucket", c.opts.Bucket, "prefix", c.opts.Prefix)

	lister, err := c.deps.ObjectLister(c.opts.Store)
	if err != nil {
		return command.Result{}, err
	}
	objects, err := lister.List(ctx, c.opts.Bucket, c.opts.Prefix)
	if err != nil {
		return command.Result{}, err
	}

	listed := make([]any, 0, len(objects))
	for _, o := range objects {
		entry := map[string]any{
			"name": o.Name,
			"size": o.Size,
		}
		if o.ETag != "" {
			entry["etag"] = o.ETag
		}
		if o.ContentType != "" {
			entry["content_type"] = o.ContentType
		}
		if o.LastModified != "" {
			entry["last_modified"] = o.LastModified
		}
		listed = append(listed, entry)
	}
	if err := ec.SetOutputParam("params.minio_objects", listed); err != nil {
		return command.Result{}, err
	}
	return command.Succeeded("%d objects in %s", len(objects), c.opts.Bucket), nil
}
