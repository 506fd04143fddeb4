package voxel

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// stepInto runs one diffusion step from target.Other() into target and makes target
// current. Caller must hold the mutex.
func (f *diffusionFieldImpl) stepInto(target BufferIndex, dt float32) error {
	if !f.initialized {
		return ErrNotInitialized
	}
	dt = f.EffectiveTimestep(dt)
	f.refreshCoefficients()

	src := f.buffers[target.Other()]
	dst := f.buffers[target]
	k := int(f.dims.K)

	if f.pool == nil || k < 2 {
		f.diffuseSlab(src, dst, dt, 0, k)
	} else {
		f.diffuseParallel(src, dst, dt)
	}

	if f.selector.Current() != target {
		f.selector.Toggle()
	}
	return nil
}

// diffuseParallel splits the grid into z-slabs and runs one pool task per slab.
// Slabs write disjoint ranges of dst and only read src.
func (f *diffusionFieldImpl) diffuseParallel(src, dst []float32, dt float32) {
	k := int(f.dims.K)
	slabs := min(f.slabs, k)
	if slabs < 1 {
		slabs = min(f.pool.GetMaxWorkers(), k)
	}
	depth := (k + slabs - 1) / slabs

	// pool.Wait() waits for workers to idle out, so a WaitGroup is the per-step barrier.
	var wg sync.WaitGroup
	for id, z0 := 0, 0; z0 < k; id, z0 = id+1, z0+depth {
		z1 := min(z0+depth, k)
		wg.Add(1)
		f.pool.SubmitTask(worker.Task{
			ID:      id,
			Payload: [2]int{z0, z1},
			Do: func() (any, error) {
				defer wg.Done()
				f.diffuseSlab(src, dst, dt, z0, z1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// diffuseSlab applies the explicit-Euler Laplacian update to every voxel with z in
// [z0, z1) for every species. Neighbours outside the grid contribute nothing.
func (f *diffusionFieldImpl) diffuseSlab(src, dst []float32, dt float32, z0, z1 int) {
	ni, nj, nk := int(f.dims.I), int(f.dims.J), int(f.dims.K)
	plane := ni * nj
	n := f.dims.Count()

	for s := range f.species {
		in := src[s*n : (s+1)*n]
		out := dst[s*n : (s+1)*n]
		for z := z0; z < z1; z++ {
			for y := range nj {
				row := ni * (y + nj*z)
				for x := range ni {
					i := row + x
					c := in[i]
					lap := -6 * c
					if x > 0 {
						lap += in[i-1]
					}
					if x < ni-1 {
						lap += in[i+1]
					}
					if y > 0 {
						lap += in[i-ni]
					}
					if y < nj-1 {
						lap += in[i+ni]
					}
					if z > 0 {
						lap += in[i-plane]
					}
					if z < nk-1 {
						lap += in[i+plane]
					}
					out[i] = c + min(f.coeff[i]*dt, maxStableProduct)*lap
				}
			}
		}
	}
}
