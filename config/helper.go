package config

// Load 加载并绑定指定节的配置到结构体 T，section 为空时绑定整个配置
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}

// LoadOrDefault 同 Load，配置节不存在或绑定失败时返回 def
func LoadOrDefault[T any](cfg Configuration, section string, def T) T {
	t, err := Load[T](cfg, section)
	if err != nil {
		return def
	}
	return t
}
