package cache

// generatePayload implements spec.md §4.10's entity-type switch for
// ReadWrite's loader.
func (c *ResponseCache) generatePayload(key CacheKey) ([]byte, error) {
	switch key.EntityType {
	case EntityApplication:
		return c.generateApplicationPayload(key)
	case EntityVIP, EntitySVIP:
		return c.generateVIPPayload(key)
	default:
		return nil, nil
	}
}

func (c *ResponseCache) generateApplicationPayload(key CacheKey) ([]byte, error) {
	switch key.Name {
	case AllApps:
		snapshot, err := c.source.AllApplications(key.Regions())
		if err != nil {
			return nil, err
		}
		return c.encoder.Encode(key.ContentType, key.AcceptLevel, snapshot)

	case AllAppsDelta:
		delta, err := c.source.Delta(key.Regions())
		if err != nil {
			return nil, err
		}
		if key.HasRegions() {
			c.versionDeltaWithRegions.Add(1)
		} else {
			c.versionDelta.Add(1)
		}
		return c.encoder.Encode(key.ContentType, key.AcceptLevel, delta)

	default:
		app, ok := c.source.Application(key.Name)
		if !ok {
			return nil, nil
		}
		return c.encoder.Encode(key.ContentType, key.AcceptLevel, app)
	}
}

func (c *ResponseCache) generateVIPPayload(key CacheKey) ([]byte, error) {
	instances, err := c.source.Instances()
	if err != nil {
		return nil, err
	}
	view := buildVIPView(instances, key.Name, key.EntityType == EntitySVIP)
	return c.encoder.Encode(key.ContentType, key.AcceptLevel, view)
}

// Invalidate implements spec.md §4.10's invalidate(appName, vip?, svip?):
// for every previously-seen (contentType, apiVersion, acceptLevel)
// variant, evict appName/ALL_APPS/ALL_APPS_DELTA (and vip/svip, if
// given), fanning each eviction out through regionSpecificKeys. ReadOnly
// is never touched directly — the next reconciler tick observes the
// difference.
func (c *ResponseCache) Invalidate(appName string, vip, svip *string) {
	c.variantMu.Lock()
	variants := make([]variant, 0, len(c.variants))
	for v := range c.variants {
		variants = append(variants, v)
	}
	c.variantMu.Unlock()

	type target struct {
		name string
		kind EntityType
	}
	targets := []target{
		{appName, EntityApplication},
		{AllApps, EntityApplication},
		{AllAppsDelta, EntityApplication},
	}
	if vip != nil {
		targets = append(targets, target{*vip, EntityVIP})
	}
	if svip != nil {
		targets = append(targets, target{*svip, EntitySVIP})
	}

	for _, v := range variants {
		for _, t := range targets {
			key := CacheKey{
				EntityType:  t.kind,
				Name:        t.name,
				ContentType: v.ContentType,
				APIVersion:  v.APIVersion,
				AcceptLevel: v.AcceptLevel,
			}
			c.evict(key)
		}
	}
}

// evict drops key's regionless form from ReadWrite along with every
// region-parameterized sibling recorded in regionSpecificKeys.
func (c *ResponseCache) evict(key CacheKey) {
	regionless := key.Regionless()
	c.deleteRW(regionless)

	c.regionMu.Lock()
	siblings := c.regionSpecificKeys[regionless]
	delete(c.regionSpecificKeys, regionless)
	c.regionMu.Unlock()

	for sib := range siblings {
		c.deleteRW(sib)
	}
}
