package probe

import "os"

// FileProbe reports ready once a path exists. Services that touch a file or
// write a unix socket when initialized can be probed this way.
type FileProbe struct{ Path string }

func (p FileProbe) Ready() (bool, error) {
	_, err := os.Stat(p.Path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (p FileProbe) Describe() string { return "file:" + p.Path }
