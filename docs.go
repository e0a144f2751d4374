/*
Package vkgrt is a small bootstrap harness which proves that a device can do hardware accelerated
ray tracing while presenting to a live window. It uploads a single triangle, builds a bottom-level
acceleration structure over it, places one instance of it in a top-level structure, and then draws
frames until the window is closed.

Most of what a harness like this does is plumbing: open a window, find a device, create a swapchain
and a pipeline. Three pieces have real depth and are where this package spends its effort:

	1. Staged transfer: data is written to a host visible staging buffer, copied on the queue into
	   a device local buffer and the staging buffer is released once the copy has completed.
	2. The two level acceleration structure build: a bottom-level structure over the triangle
	   geometry, then a top-level structure over packed instance records which reference the
	   bottom-level structure by its identifier.
	3. The frame loop: acquire an image, submit the pre-recorded command buffer for that image,
	   present it and wait on the host until the frame's fence has signaled.

Terms
	Context		everything scoped to the device, passed explicitly to each operation
	Adapter		a physical device as reported by the driver
	Buffer		a device buffer together with the single memory allocation bound to it
	AccelStruct	an acceleration structure and its object storage
	InstanceRecord	one 64 byte entry of a top-level structure's instance buffer
	FramePipeline	the swapchain, render pass, raster pipeline and frame sync objects
	FrameLoop	the per frame acquire, submit, present and wait cycle

Devices

The package never talks to Vulkan directly. It is written against the interfaces of the driver
package, which has two implementations: driver/vulkan, built on vulkan-go with a small cgo shim for
VK_NV_ray_tracing, and driver/soft, an in-memory device which records everything it is asked to do
and is what the tests run against.

Ownership

Every device object created through a Context is pushed onto its release stack and destroyed by
Context.Destroy, newest first, after the device has gone idle. Destroy may be called more than once,
so a program can both defer it and bind it to its fatal exit path.

Errors

Every failure is an *OpError naming the failed operation and carrying one of the sentinel kinds
(ErrInitialization, ErrNoSuitableMemoryType, ErrNoSuitableQueueFamily, ErrBuild, ErrSubmission,
ErrAllocation). There are no retries; callers are expected to tear down and exit.
*/
package vkgrt
