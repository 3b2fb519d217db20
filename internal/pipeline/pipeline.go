// Package pipeline runs the pointvol flow: sample a point cloud, interpolate
// it onto a volume, remap a value range, render and save the results.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/soypat/pointvol"
	"github.com/soypat/pointvol/colormap"
	"github.com/soypat/pointvol/internal/config"
	"github.com/soypat/pointvol/internal/publish"
	"github.com/soypat/pointvol/interp"
	"github.com/soypat/pointvol/render"
	"github.com/soypat/pointvol/report"
	"github.com/soypat/pointvol/volio"
	"gonum.org/v1/gonum/spatial/r3"
)

// Artifact file names written to the run directory.
const (
	ScenePNG     = "scene.png"
	SlicesPNG    = "slices.png"
	HistogramPNG = "histogram.png"
	ReportHTML   = "report.html"
	SurfaceSTL   = "surface.stl"
	SurfaceGLB   = "surface.glb"
	VolumeFile   = "volume.pvol"
)

const (
	histogramBins = 40
	slicePixels   = 240
)

// Result summarizes a run.
type Result struct {
	RunID string
	// Dir is the local directory holding the artifacts.
	Dir       string
	Artifacts []string
	// Published lists where artifacts were published, if anywhere.
	Published []string
	Replaced  int
	Cloud     *pointvol.PointCloud
	Volume    *pointvol.Volume
}

// Run executes the flow described by cfg. Artifacts are published to S3
// when a bucket is configured.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Result, error) {
	var pub publish.Publisher
	if cfg.S3.Bucket != "" {
		s3p, err := publish.NewS3(ctx, publish.S3Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		pub = s3p
	}
	return RunWith(ctx, cfg, log, pub)
}

// RunWith is Run with an explicit publisher. pub may be nil.
func RunWith(ctx context.Context, cfg *config.Config, log zerolog.Logger, pub publish.Publisher) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res := &Result{RunID: uuid.NewString()}
	log = log.With().Str("run", res.RunID).Logger()
	res.Dir = filepath.Join(cfg.Output.Dir, res.RunID)
	if err := os.MkdirAll(res.Dir, 0o755); err != nil {
		return nil, err
	}

	// Point cloud with a scalar taken from the z coordinate.
	rng := rand.New(rand.NewSource(cfg.Cloud.Seed))
	cloud := pointvol.RandomCloud(rng, cfg.Cloud.Points, r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}})
	cloud.ScalarsFromAxis(2)
	res.Cloud = cloud
	log.Debug().Int("points", cloud.Len()).Int64("seed", cfg.Cloud.Seed).Msg("sampled point cloud")

	vol, err := interpolate(ctx, cfg, cloud, log)
	if err != nil {
		return nil, err
	}
	res.Volume = vol

	lo, hi := cloud.ScalarRange()
	tf, err := colormap.Parse(cfg.Colormap, lo, hi)
	if err != nil {
		return nil, err
	}

	if cfg.Threshold.Enabled {
		th := cfg.Threshold
		res.Replaced, err = vol.ThresholdRange(th.Above, th.Below, th.Replace)
		if err != nil {
			return nil, fmt.Errorf("threshold: %w", err)
		}
		log.Info().Float64("above", th.Above).Float64("below", th.Below).
			Float64("replace", th.Replace).Int("replaced", res.Replaced).Msg("remapped value range")
	}

	add := func(name string) string {
		path := filepath.Join(res.Dir, name)
		res.Artifacts = append(res.Artifacts, path)
		return path
	}
	if err := renderScene(cfg, cloud, vol, tf, add(ScenePNG), log); err != nil {
		return nil, err
	}
	if err := writeSlices(vol, tf, add(SlicesPNG)); err != nil {
		return nil, err
	}
	if err := writeReports(cloud, vol, tf, add(HistogramPNG), add(ReportHTML)); err != nil {
		return nil, err
	}
	if err := volio.Save(add(VolumeFile), vol, volio.Options{Compress: cfg.Output.Compress}); err != nil {
		return nil, err
	}
	surface, err := writeSurface(cfg, vol, tf, filepath.Join(res.Dir, SurfaceSTL), filepath.Join(res.Dir, SurfaceGLB), log)
	if err != nil {
		return nil, err
	}
	res.Artifacts = append(res.Artifacts, surface...)
	log.Info().Str("dir", res.Dir).Int("artifacts", len(res.Artifacts)).Msg("artifacts written")

	if pub != nil {
		prefix := res.RunID
		if cfg.S3.Prefix != "" {
			prefix = cfg.S3.Prefix + "/" + res.RunID
		}
		res.Published, err = publish.All(ctx, pub, prefix, res.Artifacts...)
		if err != nil {
			return res, err
		}
		log.Info().Strs("locations", res.Published).Msg("artifacts published")
	}
	return res, nil
}

func interpolate(ctx context.Context, cfg *config.Config, cloud *pointvol.PointCloud, log zerolog.Logger) (*pointvol.Volume, error) {
	kernel, err := interp.ParseKernel(cfg.Interp.Kernel)
	if err != nil {
		return nil, err
	}
	icfg := interp.Config{
		Kernel:  kernel,
		Dims:    pointvol.V3i(cfg.Interp.Dims),
		Workers: cfg.Interp.Workers,
	}
	if cfg.Interp.N > 0 {
		icfg.N = cfg.Interp.N
	} else {
		icfg.Radius = cfg.Interp.Radius
	}
	start := time.Now()
	vol, err := interp.ToVolume(ctx, cloud, icfg)
	if err != nil {
		return nil, fmt.Errorf("interpolating %s: %w", kernel, err)
	}
	vmin, vmax := vol.Range()
	log.Info().Stringer("kernel", kernel).Float64("radius", icfg.Radius).Int("nclosest", icfg.N).
		Ints("dims", cfg.Interp.Dims[:]).Float64("min", vmin).Float64("max", vmax).
		Dur("elapsed", time.Since(start)).Msg("interpolated volume")
	return vol, nil
}

func renderScene(cfg *config.Config, cloud *pointvol.PointCloud, vol *pointvol.Volume, tf *colormap.TransferFunction, path string, log zerolog.Logger) error {
	start := time.Now()
	plt, err := render.Show([]render.Actor{
		render.Points(cloud, tf),
		render.VolumeOf(vol, tf),
	}, render.ShowOptions{
		Width:       cfg.View.Width,
		Height:      cfg.View.Height,
		Axes:        cfg.View.Axes,
		Elevation:   cfg.View.Elevation,
		Azimuth:     cfg.View.Azimuth,
		Supersample: cfg.View.Supersample,
		Title:       sceneTitle(cfg),
	})
	if err != nil {
		return err
	}
	defer plt.Close()
	if err := plt.Screenshot(path); err != nil {
		return err
	}
	log.Info().Str("path", path).Dur("elapsed", time.Since(start)).Msg("rendered scene")
	return plt.Close()
}

// sceneTitle names the kernel and the footprint used to interpolate.
func sceneTitle(cfg *config.Config) string {
	kernel, err := interp.ParseKernel(cfg.Interp.Kernel)
	switch {
	case err != nil:
		return cfg.Interp.Kernel
	case kernel == interp.Voronoi:
		return kernel.String()
	case cfg.Interp.N > 0:
		return fmt.Sprintf("%s n=%d", kernel, cfg.Interp.N)
	}
	return fmt.Sprintf("%s r=%g", kernel, cfg.Interp.Radius)
}

// writeSlices saves the planes through the volume center normal to each axis.
func writeSlices(vol *pointvol.Volume, tf *colormap.TransferFunction, path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.WriteSlicesPNG(fp, vol, tf, slicePixels); err != nil {
		fp.Close()
		return fmt.Errorf("slices: %w", err)
	}
	return fp.Close()
}

func writeReports(cloud *pointvol.PointCloud, vol *pointvol.Volume, tf *colormap.TransferFunction, histPath, htmlPath string) error {
	if err := report.HistogramPNG(histPath, vol, histogramBins, tf); err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	fp, err := os.Create(htmlPath)
	if err != nil {
		return err
	}
	err = report.WriteHTML(fp, cloud, vol, report.HTMLOptions{
		Title:     "pointvol",
		Bins:      histogramBins,
		MaxPoints: 5000,
		Colors:    tf,
	})
	if err != nil {
		fp.Close()
		return fmt.Errorf("html report: %w", err)
	}
	return fp.Close()
}

var errEmptySurface = errors.New("no voxels selected for surface")

// writeSurface saves the surface enclosing voxels at or above the upper
// threshold bound. It returns the paths written.
func writeSurface(cfg *config.Config, vol *pointvol.Volume, tf *colormap.TransferFunction, stlPath, glbPath string, log zerolog.Logger) ([]string, error) {
	level := cfg.Threshold.Below
	if !cfg.Threshold.Enabled {
		lo, hi := vol.Range()
		level = (lo + hi) / 2
	}
	sel := render.IsoAbove(level)
	mesh := render.VoxelMesh(vol, sel, tf)
	if mesh.Len() == 0 {
		log.Warn().Float64("level", level).Err(errEmptySurface).Msg("skipping surface export")
		return nil, nil
	}
	if err := render.CreateSTL(stlPath, render.NewVoxelRenderer(vol, sel)); err != nil {
		return nil, fmt.Errorf("stl: %w", err)
	}
	if err := checkSTL(stlPath, mesh.Len()); err != nil {
		return nil, err
	}
	if err := render.WriteGLB(glbPath, mesh); err != nil {
		return nil, fmt.Errorf("glb: %w", err)
	}
	log.Info().Float64("level", level).Int("triangles", mesh.Len()).Msg("exported surface")
	return []string{stlPath, glbPath}, nil
}

// checkSTL reads back the STL file at path and compares its triangle count.
func checkSTL(path string, want int) error {
	fp, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	model, err := render.ReadSTL(bufio.NewReader(fp))
	if err != nil {
		return fmt.Errorf("stl %s: %w", path, err)
	}
	if len(model) != want {
		return fmt.Errorf("stl %s has %d triangles, want %d", path, len(model), want)
	}
	return nil
}
