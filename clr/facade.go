// Package clr decodes the ECMA-335 CLI/CLR metadata embedded in a .NET
// PE image: the CLI header, metadata root, named heaps, the dynamically
// schemed tables stream, and the manifest resource subsystem built on
// top of them. It depends on the PE container parser only through the
// small peImage seam (cliheader.go); the pe package itself owns DOS/NT
// header, section table, and RVA translation.
package clr

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mlsorensen/clrdump/pe"
)

// Options configures Open. The zero value parses eagerly, matching spec
// section 9's default.
type Options struct {
	// LazyLoad defers parsing the tables stream and building the resource
	// list until first access, guarded by sync.Once. Heaps are always
	// parsed eagerly regardless of this flag: every other subsystem reads
	// them, so deferring them buys nothing and would only push the same
	// cost onto whichever accessor happens to run first.
	LazyLoad bool
}

// Image is the decoded CLR metadata for one .NET module: the composed
// result of every subsystem in this package, wired together the way
// spec section 6's external interface describes.
type Image struct {
	CLIHeader    *CLIHeader
	MetadataRoot *MetadataRoot

	Strings *StringsHeap
	US      *UserStringHeap
	GUIDs   *GUIDHeap
	Blobs   *BlobHeap

	Warnings func() []Warning

	img  peImage
	sink *memorySink

	lazy      bool
	tablesOnce sync.Once
	tables     *Tables

	schemaOnce   sync.Once
	schemaTables *Tables

	resourcesOnce sync.Once
	resources     []*ClrResource

	methodsOnce sync.Once
	methods     []*Method
}

// Open reads a .NET PE file from disk and decodes its CLR metadata.
func Open(path string, opts Options) (*Image, error) {
	f, err := pe.NewFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening PE image")
	}
	return newImage(f, opts)
}

// OpenBytes decodes CLR metadata from an in-memory PE image.
func OpenBytes(data []byte, opts Options) (*Image, error) {
	f, err := pe.NewFileFromBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing PE image")
	}
	return newImage(f, opts)
}

func newImage(f *pe.File, opts Options) (*Image, error) {
	return newImageFromPeImage(f, opts)
}

// newImageFromPeImage is the seam tests use to substitute a fake peImage
// instead of a real *pe.File.
func newImageFromPeImage(img peImage, opts Options) (*Image, error) {
	sink := newMemorySink()

	header, err := readCLIHeader(img)
	if err != nil {
		return nil, err
	}

	root, err := readMetadataRoot(img, header.MetaDataRVA, header.MetaDataSize, sink)
	if err != nil {
		return nil, err
	}

	image := &Image{
		CLIHeader:    header,
		MetadataRoot: root,
		img:          img,
		sink:         sink,
		lazy:         opts.LazyLoad,
	}
	image.Warnings = func() []Warning { return sink.warnings }

	image.Strings = newStringsHeap(streamBytes(root, "#Strings"), streamRVAFor(root, "#Strings"))
	image.US = newUserStringHeap(streamBytes(root, "#US"), streamRVAFor(root, "#US"))
	image.GUIDs = newGUIDHeap(streamBytes(root, "#GUID"), streamRVAFor(root, "#GUID"))
	image.Blobs = newBlobHeap(streamBytes(root, "#Blob"), streamRVAFor(root, "#Blob"))

	for _, name := range []string{"#Strings", "#US", "#GUID", "#Blob"} {
		if dup := root.allStreamsNamed(name); len(dup) > 1 {
			sink.Warnf(DecodingError, "metadata.streams", "stream %q appears %d times, using the last occurrence", name, len(dup))
		}
	}

	if !opts.LazyLoad {
		if err := image.loadTables(); err != nil {
			return nil, err
		}
		image.loadResources()
		image.loadMethods()
	}

	return image, nil
}

func streamBytes(root *MetadataRoot, name string) []byte {
	sh, ok := root.lastStreamNamed(name)
	if !ok {
		return nil
	}
	return root.streamData(sh)
}

func streamRVAFor(root *MetadataRoot, name string) uint32 {
	sh, ok := root.lastStreamNamed(name)
	if !ok {
		return 0
	}
	return root.streamRVA(sh)
}

// tablesStreamNames are the three stream names spec section 4.1 recognizes
// as tables-stream variants: #~ (compressed, the common case), #-
// (uncompressed, seen in some obfuscated/edit-and-continue images), and
// #Schema (an alternative tables stream some tools emit).
var tablesStreamNames = [3]string{"#~", "#-", "#Schema"}

// primaryTablesStream picks whichever #~/#-/#Schema stream header sits
// latest in the metadata root's stream directory, per spec section 9's
// resolution of the "#Schema and #~ both present" open question: prefer
// the last present tables stream for the primary accessor, while the
// #Schema stream also stays independently reachable through
// schemaTablesStreamData.
func (m *MetadataRoot) primaryTablesStream() (StreamHeader, bool) {
	var best StreamHeader
	bestIndex := -1
	for i, s := range m.Streams {
		for _, name := range tablesStreamNames {
			if s.Name == name && i > bestIndex {
				best, bestIndex = s, i
			}
		}
	}
	return best, bestIndex >= 0
}

func (m *MetadataRoot) tablesStreamData() []byte {
	sh, ok := m.primaryTablesStream()
	if !ok {
		return nil
	}
	return m.streamData(sh)
}

// schemaTablesStreamData returns the #Schema stream's bytes regardless of
// whether it was selected as the primary tables stream, so it stays
// accessible on its own per spec section 4.1/9.
func (m *MetadataRoot) schemaTablesStreamData() ([]byte, bool) {
	sh, ok := m.lastStreamNamed("#Schema")
	if !ok {
		return nil, false
	}
	return m.streamData(sh), true
}

func (img *Image) loadTables() error {
	data := img.MetadataRoot.tablesStreamData()
	if data == nil {
		img.sink.Warnf(TruncatedStructure, "metadata.streams", "no #~, #-, or #Schema stream present")
		img.tables = &Tables{ByID: map[TableID]*Table{}}
		return nil
	}
	tables, err := parseTablesStream(data, img.sink)
	if err != nil {
		return err
	}
	linkTables(tables, img.Strings, img.GUIDs, img.Blobs, img.sink)
	img.tables = tables
	return nil
}

func (img *Image) loadResources() {
	img.resources = buildResources(img.CLIHeader, img.img, img.tables, img.sink)
}

func (img *Image) loadMethods() {
	img.methods = buildMethods(img.tables)
}

// Tables returns the decoded, linked tables stream. Under LazyLoad it is
// parsed on first call; a parse failure is remembered as a warning and
// yields an empty table set rather than a panic or a second attempt.
func (img *Image) Tables() *Tables {
	img.tablesOnce.Do(func() {
		if img.tables != nil {
			return
		}
		if err := img.loadTables(); err != nil {
			img.sink.Warnf(TruncatedStructure, "metadata.tables", "%v", err)
			img.tables = &Tables{ByID: map[TableID]*Table{}}
		}
	})
	return img.tables
}

// Resources returns every ManifestResource row's decoded form. Under
// LazyLoad it is built on first call.
func (img *Image) Resources() []*ClrResource {
	img.Tables()
	img.resourcesOnce.Do(func() {
		if img.resources == nil {
			img.loadResources()
		}
	})
	return img.resources
}

// Methods returns the internal (MethodDef) and external (MemberRef)
// method façade for every method-shaped row in the tables stream.
func (img *Image) Methods() []*Method {
	img.Tables()
	img.methodsOnce.Do(func() {
		if img.methods == nil {
			img.loadMethods()
		}
	})
	return img.methods
}

// Table returns the decoded table for id, or nil if the image doesn't
// have it (its valid bit was clear). Under LazyLoad it goes through
// Tables(), so the tables stream is parsed on the first call.
func (img *Image) Table(id TableID) *Table {
	return img.Tables().Table(id)
}

// SchemaTables returns the #Schema stream parsed as its own independent
// tables stream, or nil if the image has no #Schema stream. This is kept
// separate from Tables() even when #Schema was selected as the primary
// stream, per spec section 9: both variants stay reachable.
func (img *Image) SchemaTables() *Tables {
	img.schemaOnce.Do(func() {
		data, ok := img.MetadataRoot.schemaTablesStreamData()
		if !ok {
			return
		}
		tables, err := parseTablesStream(data, img.sink)
		if err != nil {
			img.sink.Warnf(TruncatedStructure, "metadata.schemaTables", "%v", err)
			return
		}
		linkTables(tables, img.Strings, img.GUIDs, img.Blobs, img.sink)
		img.schemaTables = tables
	})
	return img.schemaTables
}
