package bcltools

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/fastq"
	"github.com/bcltools/bcltools/fio"
	"github.com/bcltools/bcltools/layout"
	"github.com/bcltools/bcltools/metrics"
	"github.com/bcltools/bcltools/model"
	"github.com/bcltools/bcltools/utils"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// handleReserve is kept free for sources, logs and the lock file when
// deciding whether the output files fit under the descriptor limit.
const handleReserve = 32

// Converter turns FASTQ sources into a sequencer output tree rooted at one
// directory. The directory is locked from Open until Close.
type Converter struct {
	mu      *sync.Mutex
	options options
	dirPath string

	fileLock fio.FileLocker
	logger   hclog.Logger
}

// Result describes a finished conversion.
type Result struct {
	RunID    string
	Profile  layout.Profile
	Lanes    int
	Cycles   int
	Clusters int
	// Counts holds the clusters written to each lane and tile.
	Counts [][]int
	Files  int
	Policy HandlePolicy
}

func Open(dirPath string, ops ...Option) (*Converter, error) {
	opts := defaultOptions
	for _, op := range ops {
		op(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.logger == nil {
		opts.logger = hclog.NewNullLogger()
	}

	if err := os.MkdirAll(dirPath, os.ModePerm); err != nil {
		return nil, err
	}
	fileLock := fio.NewFlock(dirPath)
	hold, err := fileLock.TryLock()
	if err != nil {
		return nil, err
	}
	if !hold {
		return nil, ErrDirInUse
	}

	return &Converter{
		mu:       new(sync.Mutex),
		options:  opts,
		dirPath:  dirPath,
		fileLock: fileLock,
		logger:   opts.logger,
	}, nil
}

// Close releases the output directory.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// the lock file itself is left in place
	return c.fileLock.Unlock()
}

// Convert writes one run from sources, which hold the segments of every
// cluster in the same order: read 1, then index reads, then read 2 and so on.
// Every source must hold the same number of records; this is checked before
// any output file is created.
func (c *Converter) Convert(sources ...fastq.Source) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	logger := c.logger.With("run", runID)

	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	cycles, clusters, err := probeSources(sources, logger)
	if err != nil {
		return nil, err
	}

	profile, lanes := c.options.profile, c.options.lanes
	quotas := partition(profile, lanes, clusters)
	structure, err := layout.New(profile, c.dirPath, lanes, cycles)
	if err != nil {
		return nil, err
	}
	if err := structure.Build(quotas); err != nil {
		return nil, err
	}
	logger.Info("output tree initialized", "profile", profile, "lanes", lanes,
		"cycles", cycles, "clusters", clusters, "files", structure.NumFiles())

	policy := c.resolvePolicy(structure, len(sources), logger)
	conv := &conversion{
		structure: structure,
		router:    newRouter(profile, quotas),
		batch:     newBatch(policy == HandleKeepOpen),
		cycles:    cycles,
		clusters:  clusters,
		files:     make(map[bucket]*bucketFiles),
		logger:    logger,
	}
	if err := conv.stream(sources); err != nil {
		logger.Error("conversion aborted", "error", err)
		_ = closeFiles(structure)
		return nil, err
	}

	if err := finalize(structure, conv.router.counts(), c.options.sync, logger); err != nil {
		logger.Error("finalize failed", "error", err)
		_ = closeFiles(structure)
		return nil, err
	}
	metrics.ObserveRun(start)
	logger.Info("conversion finished", "clusters", clusters, "elapsed", time.Since(start))

	return &Result{
		RunID:    runID,
		Profile:  profile,
		Lanes:    lanes,
		Cycles:   cycles,
		Clusters: clusters,
		Counts:   conv.router.counts(),
		Files:    structure.NumFiles(),
		Policy:   policy,
	}, nil
}

func (c *Converter) resolvePolicy(s *layout.Structure, sources int, logger hclog.Logger) HandlePolicy {
	if c.options.handlePolicy != HandleAuto {
		return c.options.handlePolicy
	}
	needed := uint64(handlesNeeded(s) + sources + handleReserve)
	limit, err := fio.OpenFileLimit()
	if err != nil {
		logger.Warn("descriptor limit unknown, reopening files per record", "error", err)
		return HandleReopen
	}
	policy := HandleReopen
	if needed <= limit {
		policy = HandleKeepOpen
	}
	logger.Debug("handle policy resolved", "needed", needed, "limit", limit, "policy", policy)
	return policy
}

// handlesNeeded is the peak number of output files held open under
// HandleKeepOpen. ProfileB fills one bucket at a time and releases it before
// the next; ProfileA keeps every lane busy at once.
func handlesNeeded(s *layout.Structure) int {
	perBucket := s.Cycles() + 2
	if s.Profile() == layout.ProfileB {
		return perBucket
	}
	return s.Lanes() * perBucket
}

// probeSources returns the total read length and the shared record count.
func probeSources(sources []fastq.Source, logger hclog.Logger) (int, int, error) {
	var cycles, clusters int
	for i, src := range sources {
		stats, err := fastq.Probe(src)
		if err != nil {
			return 0, 0, err
		}
		logger.Debug("probed source", "source", src.Name(), "read_length", stats.ReadLength, "records", stats.Records)
		if i == 0 {
			clusters = stats.Records
		} else if stats.Records != clusters {
			return 0, 0, fmt.Errorf("%w: %s holds %d records, %s holds %d",
				model.ErrSynchronization, src.Name(), stats.Records, sources[0].Name(), clusters)
		}
		cycles += stats.ReadLength
	}
	return cycles, clusters, nil
}

// partition splits clusters over lanes, then over the tiles of each lane.
func partition(profile layout.Profile, lanes, clusters int) [][]int {
	perLane := utils.Partition(clusters, lanes)
	quotas := make([][]int, lanes)
	for lane, n := range perLane {
		quotas[lane] = utils.Partition(n, profile.NumTiles())
	}
	return quotas
}

// bucketFiles are the files one cluster is written to.
type bucketFiles struct {
	bcl    []*model.RecordFile
	locs   *model.RecordFile
	filter *model.RecordFile
}

func (bf *bucketFiles) close() error {
	var errs []error
	for _, rf := range bf.bcl {
		errs = append(errs, rf.Close())
	}
	errs = append(errs, bf.locs.Close(), bf.filter.Close())
	return errors.Join(errs...)
}

// conversion is the state of one streaming pass.
type conversion struct {
	structure *layout.Structure
	router    *router
	batch     *Batch
	cycles    int
	clusters  int

	files map[bucket]*bucketFiles
	last  bucket

	seq, qual []byte
	logger    hclog.Logger
}

func (conv *conversion) stream(sources []fastq.Source) error {
	readers := make([]*fastq.Reader, len(sources))
	for i, src := range sources {
		rc, err := src.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		readers[i] = fastq.NewReader(rc)
	}

	conv.seq = make([]byte, 0, conv.cycles)
	conv.qual = make([]byte, 0, conv.cycles)
	for index := 0; index < conv.clusters; index++ {
		header, err := conv.readCluster(index, sources, readers)
		if err != nil {
			return err
		}
		if err := conv.write(index, header); err != nil {
			return err
		}
	}

	for i, reader := range readers {
		_, err := reader.Read()
		if err == nil {
			return fmt.Errorf("%w: %s holds more than %d records", model.ErrSynchronization, sources[i].Name(), conv.clusters)
		}
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: %w", sources[i].Name(), err)
		}
	}
	return nil
}

// readCluster reads one record from every source and concatenates their
// sequences and qualities. The header of the first source describes the
// cluster.
func (conv *conversion) readCluster(index int, sources []fastq.Source, readers []*fastq.Reader) (fastq.Header, error) {
	var header fastq.Header
	var name []byte
	conv.seq, conv.qual = conv.seq[:0], conv.qual[:0]

	for i, reader := range readers {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return header, fmt.Errorf("%w: %s ended at cluster %d", model.ErrSynchronization, sources[i].Name(), index)
		}
		if err != nil {
			return header, fmt.Errorf("%s: %w", sources[i].Name(), err)
		}

		if i == 0 {
			name = fastq.Name(record.ID)
			if header, err = fastq.ParseHeader(record.ID); err != nil {
				return header, fmt.Errorf("%s: %w", sources[i].Name(), err)
			}
		} else if other := fastq.Name(record.ID); !bytes.Equal(other, name) {
			return header, fmt.Errorf("%w: cluster %d is %q in %s but %q in %s",
				model.ErrSynchronization, index, name, sources[0].Name(), other, sources[i].Name())
		}
		conv.seq = append(conv.seq, record.Seq...)
		conv.qual = append(conv.qual, record.Qual...)
	}

	if len(conv.seq) != conv.cycles {
		return header, fmt.Errorf("%w: cluster %d spans %d cycles, run has %d",
			model.ErrSynchronization, index, len(conv.seq), conv.cycles)
	}
	return header, nil
}

// write encodes one cluster in full, then commits it as a single batch.
func (conv *conversion) write(index int, header fastq.Header) error {
	b, mark, err := conv.router.next()
	if err != nil {
		return err
	}
	files, err := conv.filesOf(b)
	if err != nil {
		return err
	}

	conv.batch.Reset(int64(mark))
	for cycle := 0; cycle < conv.cycles; cycle++ {
		bc, err := codec.ParseBaseCall(conv.seq[cycle], conv.qual[cycle])
		if err != nil {
			return fmt.Errorf("cluster %d cycle %d: %w", index, cycle+1, err)
		}
		encoded, err := codec.EncodeBaseCall(bc)
		if err != nil {
			return fmt.Errorf("cluster %d cycle %d: %w", index, cycle+1, err)
		}
		if err := conv.batch.Put(files.bcl[cycle], encoded); err != nil {
			return err
		}
	}

	position := codec.Position{X: float32(header.X), Y: float32(header.Y)}
	if err := conv.batch.Put(files.locs, codec.EncodePosition(position)...); err != nil {
		return fmt.Errorf("cluster %d: %w", index, err)
	}
	pass, err := codec.ParseFilterToken(header.Filtered)
	if err != nil {
		return fmt.Errorf("cluster %d: %w", index, err)
	}
	if err := conv.batch.Put(files.filter, codec.EncodeFilter(pass)); err != nil {
		return err
	}

	if err := conv.batch.Commit(); err != nil {
		return fmt.Errorf("cluster %d: %w", index, err)
	}
	metrics.ClustersConverted.Inc()
	metrics.RecordsWritten.WithLabelValues(codec.KindBCL.String()).Add(float64(conv.cycles))
	metrics.RecordsWritten.WithLabelValues(codec.KindLOCS.String()).Inc()
	metrics.RecordsWritten.WithLabelValues(codec.KindFILTER.String()).Inc()
	return nil
}

// filesOf looks up the files of b once and caches them. Under ProfileB a
// bucket is never revisited, so moving on releases the previous one.
func (conv *conversion) filesOf(b bucket) (*bucketFiles, error) {
	if files, ok := conv.files[b]; ok {
		return files, nil
	}
	if conv.structure.Profile() == layout.ProfileB {
		if prev, ok := conv.files[conv.last]; ok {
			conv.logger.Trace("bucket complete", "lane", conv.last.lane+1, "tile", conv.structure.TileNumber(conv.last.tile))
			if err := prev.close(); err != nil {
				return nil, err
			}
			delete(conv.files, conv.last)
		}
	}

	files := &bucketFiles{bcl: make([]*model.RecordFile, conv.cycles)}
	for cycle := range files.bcl {
		rf, err := conv.structure.Bcl(b.lane, b.tile, cycle)
		if err != nil {
			return nil, err
		}
		files.bcl[cycle] = rf
	}
	var err error
	if files.locs, err = conv.structure.Locs(b.lane, b.tile); err != nil {
		return nil, err
	}
	if files.filter, err = conv.structure.Filter(b.lane, b.tile); err != nil {
		return nil, err
	}
	conv.files[b] = files
	conv.last = b
	return files, nil
}
