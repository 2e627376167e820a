/*
Copyright 2025 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package healthz

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Healthz tracks the readiness of the parts of a process. It is ready when
// every registered target is ready, and never ready without targets.
type Healthz interface {
	IsReady() bool
	AddTarget(name string) Target
	GetUnhealthyTargets() []string
	Handler() http.Handler
}

// Target is one part of the process reporting its readiness.
type Target interface {
	Ready()
	NotReady()
}

type healthz struct {
	lock    sync.RWMutex
	targets map[string]bool
}

func New() Healthz {
	return &healthz{targets: make(map[string]bool)}
}

func (h *healthz) IsReady() bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if len(h.targets) == 0 {
		return false
	}
	for _, ready := range h.targets {
		if !ready {
			return false
		}
	}
	return true
}

func (h *healthz) AddTarget(name string) Target {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.targets[name] = false
	return &target{name: name, healthz: h}
}

func (h *healthz) GetUnhealthyTargets() []string {
	h.lock.RLock()
	defer h.lock.RUnlock()
	unhealthy := make([]string, 0, len(h.targets))
	for name, ready := range h.targets {
		if !ready {
			unhealthy = append(unhealthy, name)
		}
	}
	sort.Strings(unhealthy)
	return unhealthy
}

// Handler answers 204 when ready and 503 listing the unready targets
// otherwise.
func (h *healthz) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if h.IsReady() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready: " + strings.Join(h.GetUnhealthyTargets(), ", ")))
	})
}

func (h *healthz) set(name string, ready bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.targets[name] = ready
}

type target struct {
	name    string
	healthz *healthz
}

func (t *target) Ready() {
	t.healthz.set(t.name, true)
}

func (t *target) NotReady() {
	t.healthz.set(t.name, false)
}
