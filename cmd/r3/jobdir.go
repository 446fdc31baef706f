package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/r3store/r3/internal/job"
)

const (
	jobConfigFileName   = "r3.yaml"
	jobMetadataFileName = "metadata.yaml"
)

// loadUncommittedJob builds an uncommitted Job from a plain source
// directory on disk, reading its r3.yaml and metadata.yaml (either may
// be absent, in which case it behaves as an empty document). Neither
// document is taken into the job's source-file set.
func loadUncommittedJob(dir string) (*job.Job, error) {
	return job.FromDirectory(dir, []string{"/" + jobConfigFileName, "/" + jobMetadataFileName},
		func() (job.Config, error) {
			data, err := os.ReadFile(filepath.Join(dir, jobConfigFileName))
			if os.IsNotExist(err) {
				return job.Config{}, nil
			}
			if err != nil {
				return job.Config{}, err
			}
			return job.FromConfigBytes(data, yaml.Unmarshal)
		},
		func() (map[string]interface{}, error) {
			data, err := os.ReadFile(filepath.Join(dir, jobMetadataFileName))
			if os.IsNotExist(err) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			var meta map[string]interface{}
			if err := yaml.Unmarshal(data, &meta); err != nil {
				return nil, err
			}
			return meta, nil
		},
	)
}
