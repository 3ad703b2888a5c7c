package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/azer/engine/assets/loaders"
	"github.com/spaghettifunk/azer/engine/core"
	"github.com/spaghettifunk/azer/engine/renderer"
)

// changesBuffer bounds the pending change notifications; further changes are
// dropped until the loop drains the channel.
const changesBuffer = 16

type AssetInfo struct {
	Path       string
	Type       ResourceType
	LastLoaded time.Time
}

// AssetManager loads assets from a directory and, once Watch is called,
// reports files that change on disk.
type AssetManager struct {
	dir     string
	assets  map[string]AssetInfo
	loaders map[ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	watching bool
	isClosed bool
	changes  chan string
}

func NewAssetManager(dir string) (*AssetManager, error) {
	s, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !s.IsDir() {
		return nil, fmt.Errorf("asset path %s is not a directory", dir)
	}

	am := &AssetManager{
		dir:     dir,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[ResourceType]Loader),
		changes: make(chan string, changesBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	am.registerLoader(ResourceTypeShader, &loaders.BinaryLoader{})

	if err := am.index(dir); err != nil {
		return nil, err
	}
	return am, nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadShaders reads the vertex and fragment SPIR-V modules, relative to the
// asset directory.
func (am *AssetManager) LoadShaders(vertex, fragment string) (renderer.ShaderStages, error) {
	vert, err := am.loadWords(vertex)
	if err != nil {
		return renderer.ShaderStages{}, err
	}
	frag, err := am.loadWords(fragment)
	if err != nil {
		return renderer.ShaderStages{}, err
	}
	return renderer.ShaderStages{Vertex: vert, Fragment: frag}, nil
}

func (am *AssetManager) loadWords(name string) ([]uint32, error) {
	res, err := am.LoadAsset(name)
	if err != nil {
		return nil, err
	}
	code, ok := res.Data.([]uint32)
	if !ok {
		return nil, fmt.Errorf("asset %s is not a shader module", name)
	}
	return code, nil
}

// LoadAsset loads name with the loader registered for its type.
func (am *AssetManager) LoadAsset(name string) (*loaders.Resource, error) {
	path := filepath.Join(am.dir, name)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if !exists {
		if _, err := os.Stat(path); err != nil {
			am.mutex.Unlock()
			return nil, fmt.Errorf("asset not found: %s", path)
		}
		asset = AssetInfo{Path: path, Type: determineAssetType(path)}
	}
	asset.LastLoaded = time.Now()
	am.assets[path] = asset
	am.mutex.Unlock()

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset %s", path)
	}
	return loader.Load(path, map[string]string{"name": name})
}

// Watch starts reporting modified assets on Changes.
func (am *AssetManager) Watch() error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	if am.watching {
		return nil
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	if err := am.watchRecursive(am.dir); err != nil {
		fsWatch.Close()
		return err
	}
	am.watching = true
	go am.start()
	core.LogInfo("watching %s for asset changes", am.dir)
	return nil
}

// Changes delivers the paths of assets written or created since Watch.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

// Close stops the watcher. It is safe to call more than once.
func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	if am.watching {
		<-am.stopped
	}
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() && e.Op&fsnotify.Create != 0 {
				if err := am.watchRecursive(e.Name); err != nil {
					core.LogWarn("failed to watch %s: %s", e.Name, err)
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if am.handleFileEvent(e.Name) {
					am.notify(e.Name)
				}
			}
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) notify(path string) {
	select {
	case am.changes <- path:
	default:
		core.LogDebug("asset change queue full, dropping %s", path)
	}
}

// index records every known asset under path without watching it.
func (am *AssetManager) index(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file. Reports whether the file is
// a known asset type.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == ResourceTypeNone {
		return false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[path]
	info.Path = path
	info.Type = assetType
	am.assets[path] = info
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return ResourceTypeShader
	default:
		return ResourceTypeNone
	}
}
