package assets

import "github.com/spaghettifunk/azer/engine/assets/loaders"

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
)

type Loader interface {
	Load(path string, params map[string]string) (*loaders.Resource, error)
	Unload(*loaders.Resource) error
}
