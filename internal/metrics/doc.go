// 版权所有 2024 Fleetctl Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的控制平面指标采集能力，覆盖
HTTP、发现/注册表、健康检查、生命周期与调度器五大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 发现与注册表指标：注册/注销计数、当前按健康状态分组的
    已注册 agent 数量。
  - 健康检查指标：探测总数与耗时、健康状态迁移计数。
  - 生命周期指标：部署/更新/回滚/停止等操作计数、状态迁移计数。
  - 调度器指标：作业提交、任务分配/完成/失败计数。
*/
package metrics
