// Package config 提供 SearchFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（SEARCHFLOW_ 前缀）的顺序合并，
// 启动前可先加载 .env 文件。
package config
