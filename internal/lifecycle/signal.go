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
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// shutdownRequester is the part of the controller the bridge may touch
type shutdownRequester interface {
	RequestShutdown(reason StopReason)
	RequestReload()
}

// SignalBridge forwards OS notifications to the controller. It only records
// the request; logging and cleanup happen on the controller's run loop.
// SignalBridge 将操作系统通知转发给控制器。它只记录请求，日志和清理
// 都在控制器的运行循环中完成。
type SignalBridge struct {
	terminate <-chan os.Signal
	reload    <-chan os.Signal
	target    shutdownRequester
	done      <-chan struct{}
	received  atomic.Int64

	release   func()
	closeOnce sync.Once
	closed    chan struct{}
}

func newSignalBridge(terminate, reload <-chan os.Signal, target shutdownRequester, done <-chan struct{}, release func()) *SignalBridge {
	b := &SignalBridge{
		terminate: terminate,
		reload:    reload,
		target:    target,
		done:      done,
		release:   release,
		closed:    make(chan struct{}),
	}
	go b.run()
	return b
}

// run exits once the controller terminates or the bridge is closed. Until
// Close, the signal registration is kept so late notifications are absorbed
// instead of killing the process.
func (b *SignalBridge) run() {
	terminate := b.terminate
	reload := b.reload
	for {
		select {
		case _, ok := <-terminate:
			if !ok {
				terminate = nil
				continue
			}
			b.received.Add(1)
			b.target.RequestShutdown(ReasonSignal)
		case _, ok := <-reload:
			if !ok {
				reload = nil
				continue
			}
			b.target.RequestReload()
		case <-b.done:
			return
		case <-b.closed:
			return
		}
	}
}

// Received returns how many termination notifications arrived
// Received 返回收到的终止通知数量
func (b *SignalBridge) Received() int64 {
	return b.received.Load()
}

// Close unregisters the OS notifications and stops forwarding. Signals that
// arrive afterwards get the default behaviour. Safe to call more than once and
// on a nil bridge.
// Close 注销操作系统通知并停止转发，之后到达的信号按默认行为处理。可多次调用，nil 亦可。
func (b *SignalBridge) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		if b.release != nil {
			b.release()
		}
		close(b.closed)
	})
}

// stopNotify unregisters channels obtained from NotifyTermination or NotifyReload
func stopNotify(chs ...chan os.Signal) {
	for _, ch := range chs {
		if ch != nil {
			signal.Stop(ch)
		}
	}
}
