/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Worker is a collaborator supervised by the controller. Start must not block;
// long-running work belongs in goroutines owned by the worker. A worker that
// fails later reports it through Controller.Fault, never from inside Start.
// Stop runs during cleanup and must not call Controller.Shutdown.
// Worker 是由控制器管理的协作组件。Start 不得阻塞；长时间运行的工作应放在
// 组件自己的 goroutine 中。之后发生的故障通过 Controller.Fault 上报（不得在 Start 内调用）。
// Stop 在清理阶段执行，不得调用 Controller.Shutdown。
type Worker interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Observer receives lifecycle notifications, typically for metrics. Calls are
// made from the controller's own goroutines, never from signal delivery.
// Observer 接收生命周期通知（通常用于指标），调用均来自控制器自身的 goroutine。
type Observer interface {
	StateChanged(from, to State)
	ShutdownRequested(reason StopReason)
	Tick()
	ConfigWarnings(n int)
	ShutdownCompleted(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State) {}
func (nopObserver) ShutdownRequested(StopReason) {}
func (nopObserver) Tick() {}
func (nopObserver) ConfigWarnings(int) {}
func (nopObserver) ShutdownCompleted(time.Duration) {}

// IntegrityStatus is the outcome of an integrity pass
// IntegrityStatus 是完整性检查的结果
type IntegrityStatus string

const (
	IntegrityPassed  IntegrityStatus = "passed"
	IntegrityFailed  IntegrityStatus = "failed"
	IntegritySkipped IntegrityStatus = "skipped"
)

// IntegrityReport describes a finished integrity pass
// IntegrityReport 描述一次已完成的完整性检查
type IntegrityReport struct {
	Status    IntegrityStatus
	Checked   []string
	CheckedAt time.Time
	Duration  time.Duration
}

// IntegrityChecker verifies local data before the daemon starts running
// IntegrityChecker 在守护进程开始运行前校验本地数据
type IntegrityChecker interface {
	Check(ctx context.Context, log *zap.Logger) IntegrityReport
}

// BlockChecker is the placeholder integrity pass over local blocks
// BlockChecker 是针对本地区块的占位完整性检查
type BlockChecker struct{}

// Check reports the blocks as verified
func (BlockChecker) Check(ctx context.Context, log *zap.Logger) IntegrityReport {
	start := time.Now()
	log.Info("checking blocks")
	return IntegrityReport{
		Status:    IntegrityPassed,
		Checked:   []string{"blocks"},
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
