package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/ait-dme/magicktiler"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tbonfort/gobs"
	"go.uber.org/zap"

	wfv1 "github.com/argoproj/argo-workflows/v3/pkg/apis/workflow/v1alpha1"
	k8sv1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	k8smeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"
)

// job is one entry of the batch job list file.
type job struct {
	Input    string `json:"input" yaml:"input"`
	Output   string `json:"output" yaml:"output"`
	Scheme   string `json:"scheme" yaml:"scheme"`
	TileSize int    `json:"tileSize" yaml:"tileSize"`
	Preview  bool   `json:"preview" yaml:"preview"`
}

// jobList is the top-level shape of the batch job list file.
type jobList struct {
	Jobs []job `yaml:"jobs"`
}

var (
	parallelism int
	dockerImage string
	argo        bool
	logger      *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "magicktiler-batch <jobs.yaml>",
	Short:        "convert a list of source images into tile pyramids, locally or as an Argo workflow",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer logger.Sync()

		jobs, err := readJobList(args[0])
		if err != nil {
			return err
		}
		if argo {
			return emitArgoWorkflow(jobs)
		}
		return runLocally(cmd.Context(), jobs)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.PersistentFlags().IntVar(&parallelism, "parallelism", 4, "number of concurrent conversions when running locally")
	rootCmd.PersistentFlags().StringVar(&dockerImage, "docker-image", "magicktiler:latest", "container image used by emitted Argo steps")
	rootCmd.PersistentFlags().BoolVar(&argo, "argo", false, "emit an Argo Workflow manifest instead of running locally")
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func readJobList(path string) ([]job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job list %s: %w", path, err)
	}
	var list jobList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse job list %s: %w", path, err)
	}
	for i := range list.Jobs {
		if list.Jobs[i].TileSize == 0 {
			list.Jobs[i].TileSize = 256
		}
		if list.Jobs[i].Scheme == "" {
			list.Jobs[i].Scheme = "zoomify"
		}
	}
	return list.Jobs, nil
}

// runLocally converts every job concurrently, bounded by a gobs pool, the
// same pool abstraction used elsewhere in this codebase's corpus for
// fan-out over independent units of work. Each job owns its own temp
// working directory and tileset root, so no coordination between workers
// is required.
func runLocally(ctx context.Context, jobs []job) error {
	stcl, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("storage.newclient: %w", err)
	}
	defer stcl.Close()

	pool := gobs.NewPool(parallelism)
	batch := pool.Batch()
	for _, j := range jobs {
		j := j
		batch.Submit(func() error {
			return runJob(ctx, stcl, j)
		})
	}
	return batch.Wait()
}

func runJob(ctx context.Context, stcl *storage.Client, j job) error {
	localSrc, cleanupSrc, err := localizeInput(ctx, stcl, j.Input)
	if err != nil {
		return fmt.Errorf("job %s: %w", j.Input, err)
	}
	defer cleanupSrc()

	localDst := j.Output
	var uploadAfter func() error
	if strings.HasPrefix(j.Output, "gs://") {
		tmpDir, err := os.MkdirTemp("", "magicktiler-batch-"+uuid.New().String())
		if err != nil {
			return fmt.Errorf("job %s: create local output dir: %w", j.Input, err)
		}
		localDst = tmpDir
		uploadAfter = func() error { return uploadDir(ctx, stcl, tmpDir, j.Output) }
	}

	proc := magicktiler.NewShellProcessor(logger)
	tctx, err := magicktiler.NewTilerContext(proc, localDst,
		magicktiler.WithTileSize(j.TileSize, j.TileSize),
		magicktiler.WithGeneratePreview(j.Preview),
		magicktiler.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("job %s: %w", j.Input, err)
	}

	var tiler magicktiler.Tiler
	switch j.Scheme {
	case "zoomify":
		tiler = magicktiler.NewZoomifyTiler(tctx)
	case "googlemaps":
		tiler = magicktiler.NewGoogleMapsTiler(tctx)
	case "tms":
		tiler = magicktiler.NewTMSTiler(tctx)
	default:
		return fmt.Errorf("job %s: unknown scheme %q", j.Input, j.Scheme)
	}

	if err := tiler.Convert(localSrc); err != nil {
		return fmt.Errorf("job %s: %w", j.Input, err)
	}
	if uploadAfter != nil {
		return uploadAfter()
	}
	return nil
}

func localizeInput(ctx context.Context, stcl *storage.Client, input string) (path string, cleanup func(), err error) {
	if !strings.HasPrefix(input, "gs://") {
		return input, func() {}, nil
	}
	bucket, object, err := splitGSURL(input)
	if err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp("", "magicktiler-src-*"+filepath.Ext(object))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	r, err := stcl.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("open %s: %w", input, err)
	}
	defer r.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("download %s: %w", input, err)
	}
	name := f.Name()
	return name, func() { os.Remove(name) }, nil
}

func uploadDir(ctx context.Context, stcl *storage.Client, localDir, gsDest string) error {
	bucket, prefix, err := splitGSURL(gsDest)
	if err != nil {
		return err
	}
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		object := prefix + "/" + filepath.ToSlash(rel)
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w := stcl.Bucket(bucket).Object(object).NewWriter(ctx)
		if _, err := io.Copy(w, f); err != nil {
			w.Close()
			return fmt.Errorf("upload %s: %w", object, err)
		}
		return w.Close()
	})
}

func splitGSURL(url string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(url, "gs://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid gs:// url %q", url)
	}
	return parts[0], parts[1], nil
}

// emitArgoWorkflow writes one parallel Argo step per job, each invoking
// "magicktiler convert" in its own container.
func emitArgoWorkflow(jobs []job) error {
	wf := &wfv1.Workflow{
		ObjectMeta: k8smeta.ObjectMeta{GenerateName: "magicktiler-batch-"},
		TypeMeta: k8smeta.TypeMeta{
			APIVersion: "argoproj.io/v1alpha1",
			Kind:       "Workflow",
		},
		Spec: wfv1.WorkflowSpec{
			Entrypoint: "convert",
			TTLStrategy: &wfv1.TTLStrategy{
				SecondsAfterSuccess: int32Ptr(3600),
			},
			Templates: []wfv1.Template{{Name: "convert"}},
		},
	}

	steps := wfv1.ParallelSteps{}
	for i, j := range jobs {
		command := []string{"magicktiler", "convert",
			"--scheme", j.Scheme,
			"--tile-size", fmt.Sprintf("%d", j.TileSize),
			j.Input, j.Output}
		step := wfv1.WorkflowStep{
			Name: fmt.Sprintf("convert-%d", i),
			Inline: &wfv1.Template{
				RetryStrategy: &wfv1.RetryStrategy{Limit: intOrStringPtr(5)},
				Container: &k8sv1.Container{
					Name:    "magicktiler",
					Image:   dockerImage,
					Command: command,
					Resources: k8sv1.ResourceRequirements{
						Requests: k8sv1.ResourceList{
							k8sv1.ResourceCPU:    resource.MustParse("1"),
							k8sv1.ResourceMemory: resource.MustParse("1G"),
						},
					},
				},
			},
		}
		steps.Steps = append(steps.Steps, step)
	}
	wf.Spec.Templates[0].Steps = append(wf.Spec.Templates[0].Steps, steps)

	data, err := yaml.Marshal(wf)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func int32Ptr(v int32) *int32 { return &v }

func intOrStringPtr(v int) *intstr.IntOrString {
	s := intstr.FromInt(v)
	return &s
}
