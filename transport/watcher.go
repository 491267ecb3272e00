package transport

import (
	"github.com/fsnotify/fsnotify"

	"github.com/openadr-ven/client/errors"
	"github.com/openadr-ven/client/logger"
)

// CertWatcher reloads a HTTPTransport's TLS material when the files it
// was built from change on disk, so an operator can rotate a VTN
// certificate without restarting the VEN process.
type CertWatcher struct {
	watcher *fsnotify.Watcher
	cfg     Config
	onReload func(*HTTPTransport)
}

// WatchCertFiles starts watching cfg's cert/key/CA files. onReload is
// called with a freshly built HTTPTransport whenever any watched file
// changes; the caller is responsible for swapping it into place.
func WatchCertFiles(cfg Config, onReload func(*HTTPTransport)) (*CertWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "transport: create file watcher")
	}

	for _, path := range []string{cfg.CertPath, cfg.KeyPath, cfg.CAFile} {
		if path == "" {
			continue
		}
		if err := w.Add(path); err != nil {
			w.Close()
			return nil, errors.Wrapf(err, "transport: watch %s", path)
		}
	}

	cw := &CertWatcher{watcher: w, cfg: cfg, onReload: onReload}
	go cw.run()
	return cw, nil
}

func (cw *CertWatcher) run() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			tr, err := New(cw.cfg)
			if err != nil {
				logger.Errorw("cert reload failed", logger.FieldError, err.Error())
				continue
			}
			logger.Infow("reloaded TLS material", "file", event.Name)
			cw.onReload(tr)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Errorw("cert watcher error", logger.FieldError, err.Error())
		}
	}
}

// Close stops watching.
func (cw *CertWatcher) Close() error {
	return cw.watcher.Close()
}
