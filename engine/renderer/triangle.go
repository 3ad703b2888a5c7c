package renderer

// TriangleVertices is the placeholder geometry drawn by DrawTriangle, in clip space.
var TriangleVertices = []Vertex2D{
	{Position: [2]float32{-0.5, 0.5}},
	{Position: [2]float32{0.5, 0.5}},
	{Position: [2]float32{0.0, -0.5}},
}

func createTriangle(memory MemoryAllocator) (Buffer, error) {
	return memory.CreateVertexBuffer(TriangleVertices)
}
