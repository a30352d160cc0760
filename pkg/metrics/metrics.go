// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// serializerNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	serializerNamespace = "model_serializer"

	modelLabelName  = "model"
	kindLabelName   = "kind"
	formatLabelName = "format"
	statusLabelName = "status"

	SuccessLabel = "success"
	FailLabel    = "fail"
)

var (
	// buckets 为耗时直方图的桶划分，单位为毫秒。
	// [1 2 4 8 16 32 64 128 256 512 1024 2048 4096 8192 16384 32768 65536 1.31072e+05]
	buckets = prometheus.ExponentialBuckets(1, 2, 18)

	// sizeBuckets 为输出大小的桶划分，单位为字节。
	sizeBuckets = []float64{1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000}

	SerializedObjects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serializerNamespace,
			Name:      "objects_total",
			Help:      "已生成的记录数量（包括嵌套展开产生的记录）",
		}, []string{modelLabelName})

	RelationExpansions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serializerNamespace,
			Name:      "relation_expansions_total",
			Help:      "关系展开（嵌套序列化）的次数",
		}, []string{kindLabelName})

	DumpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serializerNamespace,
			Name:      "dump_latency",
			Help:      "一次 Dump 的耗时，单位毫秒",
			Buckets:   buckets,
		}, []string{formatLabelName, statusLabelName})

	DumpBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serializerNamespace,
			Name:      "dump_bytes",
			Help:      "一次 Dump 写出的字节数",
			Buckets:   sizeBuckets,
		}, []string{formatLabelName})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标，重复调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(SerializedObjects)
		r.MustRegister(RelationExpansions)
		r.MustRegister(DumpLatency)
		r.MustRegister(DumpBytes)
		metricRegisterer = r
	})
}
